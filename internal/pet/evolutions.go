// Evolution form catalog — descriptions and the trait that earns each form.
package pet

// Evolution describes one lifecycle form.
type Evolution struct {
	ID          EvolutionID
	Description string
}

var evolutionCatalog = map[EvolutionID]Evolution{
	Baby: {Baby, "fresh intern learning the ropes of finance"},

	PennyPinscher: {PennyPinscher, "cost-conscious analyst who questions every expense"},
	RuleFollower:  {RuleFollower, "policy-driven processor who follows every regulation"},
	RiskTaker:     {RiskTaker, "bold decision-maker comfortable with uncertainty and high stakes"},
	Watchdog:      {Watchdog, "sharp-eyed monitor who spots anomalies others miss"},
	BeanCounter:   {BeanCounter, "meticulous number-cruncher focused on accuracy"},
	WildCard:      {WildCard, "unpredictable analyst with unconventional methods"},
	NPC:           {NPC, "ordinary finance worker finding their way"},

	VigilantAuditor:    {VigilantAuditor, "eagle-eyed auditor ensuring compliance across the board"},
	ChiefRiskOfficer:   {ChiefRiskOfficer, "strategic leader balancing risk and opportunity"},
	ForensicAccountant: {ForensicAccountant, "financial detective uncovering hidden discrepancies"},
	ComplianceGuardian: {ComplianceGuardian, "steadfast enforcer of regulatory standards"},
	HedgeFundHawk:      {HedgeFundHawk, "aggressive optimizer maximizing returns while cutting waste"},
	BudgetSage:         {BudgetSage, "wise steward of organizational resources"},
	FraudDetective:     {FraudDetective, "relentless investigator hunting financial fraud"},
	Sigma:              {Sigma, "lone wolf analyst charting an independent course"},

	Graduated: {Graduated, "seasoned professional who mastered the finance gauntlet"},
	RIP:       {RIP, "failed to thrive"},
}

// GetEvolution looks up a form by id, falling back to npc for unknown ids.
func GetEvolution(id EvolutionID) Evolution {
	if e, ok := evolutionCatalog[id]; ok {
		return e
	}
	return evolutionCatalog[NPC]
}

// EvolutionTrait maps each form to the trait combination that earns it.
var EvolutionTrait = map[EvolutionID]string{
	PennyPinscher:      "high thriftiness",
	RuleFollower:       "high compliance",
	RiskTaker:          "high risk tolerance",
	Watchdog:           "high anomaly sensitivity",
	BeanCounter:        "balanced precision",
	WildCard:           "unpredictable methods",
	NPC:                "balanced traits",
	VigilantAuditor:    "high compliance + high anomaly sensitivity",
	ChiefRiskOfficer:   "high risk + high compliance",
	ForensicAccountant: "high thriftiness + high anomaly sensitivity",
	ComplianceGuardian: "high compliance + high vigilance",
	HedgeFundHawk:      "high risk + high thriftiness",
	BudgetSage:         "high thriftiness + high compliance",
	FraudDetective:     "high anomaly sensitivity + high risk",
	Sigma:              "independent strategist",
	Baby:               "developing traits",
	Graduated:          "mastered finance",
	RIP:                "failed to thrive",
}

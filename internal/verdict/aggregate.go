package verdict

// Aggregate reduces a body verdict plus zero or more attachment verdicts
// into a manifest-level decision and risk.
//
// The worst decision and the worst risk are selected independently, so the
// reported risk may come from a different member than the reported decision.
// Ties go to the first member encountered in iteration order. With no
// attachments the result is exactly the body verdict's pair.
func Aggregate(body Verdict, attachments []Verdict) (Decision, Risk) {
	worstDecision := body.Decision
	worstRisk := body.Risk

	for _, v := range attachments {
		if v.Decision.Severity() > worstDecision.Severity() {
			worstDecision = v.Decision
		}
		if v.Risk.Severity() > worstRisk.Severity() {
			worstRisk = v.Risk
		}
	}

	return worstDecision, worstRisk
}

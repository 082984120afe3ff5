package verdict

import "testing"

func TestAggregate_WorstOfBodyAndAttachments(t *testing.T) {
	tests := []struct {
		name         string
		body         Verdict
		attachments  []Verdict
		wantDecision Decision
		wantRisk     Risk
	}{
		{
			name:         "clean body, quarantined attachment",
			body:         New(Allow, RiskLow, "clean_text"),
			attachments:  []Verdict{New(Quarantine, RiskHigh, "suspicious_extension:.exe")},
			wantDecision: Quarantine,
			wantRisk:     RiskHigh,
		},
		{
			name:         "body worse than attachments",
			body:         New(Deny, RiskHigh, "malware_pattern:base64 -d"),
			attachments:  []Verdict{New(Allow, RiskLow, "clean_file")},
			wantDecision: Deny,
			wantRisk:     RiskHigh,
		},
		{
			name: "decision and risk from different members",
			body: New(Challenge, RiskHigh, "prompt_injection:x"),
			attachments: []Verdict{
				New(Quarantine, RiskMedium, "suspicious_extension:.bat"),
			},
			wantDecision: Quarantine,
			wantRisk:     RiskHigh,
		},
		{
			name:         "all clean",
			body:         New(Allow, RiskLow, "clean_text"),
			attachments:  []Verdict{New(Allow, RiskLow, "clean_file"), New(Allow, RiskLow, "clean_file")},
			wantDecision: Allow,
			wantRisk:     RiskLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, r := Aggregate(tt.body, tt.attachments)
			if d != tt.wantDecision {
				t.Errorf("decision: got %s want %s", d, tt.wantDecision)
			}
			if r != tt.wantRisk {
				t.Errorf("risk: got %s want %s", r, tt.wantRisk)
			}
		})
	}
}

func TestAggregate_NoAttachmentsEqualsBody(t *testing.T) {
	body := New(Challenge, RiskMedium, "oversize_file")
	d, r := Aggregate(body, nil)
	if d != body.Decision || r != body.Risk {
		t.Errorf("got (%s, %s), want body's (%s, %s)", d, r, body.Decision, body.Risk)
	}
}

func TestSeverityOrdering(t *testing.T) {
	decisions := []Decision{Allow, Challenge, Quarantine, Deny}
	for i := 1; i < len(decisions); i++ {
		if decisions[i].Severity() <= decisions[i-1].Severity() {
			t.Errorf("decision ordering broken at %s", decisions[i])
		}
	}
	risks := []Risk{RiskLow, RiskMedium, RiskHigh}
	for i := 1; i < len(risks); i++ {
		if risks[i].Severity() <= risks[i-1].Severity() {
			t.Errorf("risk ordering broken at %s", risks[i])
		}
	}
}

func TestFlagged(t *testing.T) {
	if New(Allow, RiskLow, "clean_text").Flagged() {
		t.Error("allow must not be flagged")
	}
	for _, d := range []Decision{Challenge, Quarantine, Deny} {
		if !New(d, RiskHigh).Flagged() {
			t.Errorf("%s must be flagged", d)
		}
	}
}

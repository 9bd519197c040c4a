package export

import (
	"fmt"
	"io"
	"os"

	"github.com/de-tools/cloud-warden/pkg/models/api"
	"github.com/de-tools/cloud-warden/pkg/models/domain"
)

// Reporter renders evaluation and remediation results for operators.
type Reporter struct {
	writer io.Writer
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{writer: writer}
}

func (r *Reporter) HandleVerdicts(ref domain.ResourceRef, verdicts []domain.Verdict) error {
	if _, err := fmt.Fprintf(r.writer, "%s\n", ref.Key()); err != nil {
		return err
	}
	if len(verdicts) == 0 {
		_, err := fmt.Fprintln(r.writer, "  no rules apply to this resource type")
		return err
	}
	for _, v := range verdicts {
		if _, err := fmt.Fprintf(r.writer, "  %-30s %-15s %s\n", v.Rule, v.Compliance, v.Reason); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reporter) HandleOutcome(ref domain.ResourceRef, verdict domain.Verdict, outcome domain.RemediationOutcome) error {
	_, err := fmt.Fprintf(r.writer, "%s\n  rule %s: %s\n  action %s: %s (%d attempts) %s\n",
		ref.Key(),
		verdict.Rule, verdict.Reason,
		outcome.Action, outcome.Status, outcome.Attempts, outcome.Reason)
	return err
}

func (r *Reporter) HandleStatus(report api.StatusReport) error {
	if len(report.Resources) == 0 {
		_, err := fmt.Fprintln(r.writer, "no resources under active monitoring")
		return err
	}
	for _, rs := range report.Resources {
		if _, err := fmt.Fprintf(r.writer, "%-60s %s\n", rs.Resource, rs.State); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reporter) HandleRules(rules []domain.Rule) error {
	for _, rule := range rules {
		action := "-"
		if rule.Action != nil {
			action = rule.Action.Name
		}
		if _, err := fmt.Fprintf(r.writer, "%-25s action=%-30s types=%v\n", rule.Name, action, rule.ResourceTypes); err != nil {
			return err
		}
	}
	return nil
}

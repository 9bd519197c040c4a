package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/de-tools/cloud-warden/pkg/models/api"
	"github.com/spf13/cobra"
)

type StatusCmd struct {
	deps Dependencies
}

func NewStatusCmd(deps Dependencies) *cobra.Command {
	sc := &StatusCmd{deps: deps}
	return &cobra.Command{
		Use:   "status",
		Short: "Dump the state machines of a running warden service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return sc.run(cmd.Context())
		},
	}
}

func (sc *StatusCmd) run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	url := fmt.Sprintf("http://%s/api/v1/status", sc.deps.ServerAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("warden service unreachable at %s: %w", sc.deps.ServerAddr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status request failed: %s", resp.Status)
	}

	var report api.StatusReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return fmt.Errorf("decode status report: %w", err)
	}
	return sc.deps.Reporter.HandleStatus(report)
}

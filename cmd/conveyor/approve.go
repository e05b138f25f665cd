package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-arcade/conveyor/internal/pkg/approval"
	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

// TokenEnv holds the API token when --token is not given
const TokenEnv = "CONVEYOR_TOKEN"

var decisionFlags struct {
	server  string
	token   string
	comment string
}

var approveCmd = &cobra.Command{
	Use:   "approve <approval-id>",
	Short: "Approve a pending deployment on a running server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return decide(cmd, args[0], "approve")
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject <approval-id>",
	Short: "Reject a pending deployment on a running server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return decide(cmd, args[0], "reject")
	},
}

func init() {
	for _, c := range []*cobra.Command{approveCmd, rejectCmd} {
		c.Flags().StringVar(&decisionFlags.server, "server", "http://127.0.0.1:8080", "conveyor server address")
		c.Flags().StringVar(&decisionFlags.token, "token", "", "API token, defaults to $"+TokenEnv)
		c.Flags().StringVarP(&decisionFlags.comment, "message", "m", "", "comment recorded with the decision")
	}
}

type apiResponse struct {
	Code   int                `json:"code"`
	Msg    string             `json:"msg"`
	ErrMsg string             `json:"errMsg"`
	Detail *approval.Approval `json:"detail"`
}

func decide(cmd *cobra.Command, id, action string) error {
	token := decisionFlags.token
	if token == "" {
		token = os.Getenv(TokenEnv)
	}
	if token == "" {
		return fmt.Errorf("an API token is required: pass --token or set %s", TokenEnv)
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(decisionFlags.server, "/")).
		SetTimeout(15 * time.Second).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetAuthToken(token)

	var res apiResponse
	resp, err := client.R().
		SetContext(cmd.Context()).
		SetBody(map[string]string{"comment": decisionFlags.comment}).
		SetResult(&res).
		SetError(&res).
		SetPathParam("id", id).
		Post("/api/v1/approvals/{id}/" + action)
	if err != nil {
		return fmt.Errorf("%s %s: %w", action, id, err)
	}
	if resp.IsError() {
		msg := res.ErrMsg
		if msg == "" {
			msg = resp.Status()
		}
		return errors.New(msg)
	}
	if res.Detail == nil {
		return fmt.Errorf("%s %s: empty response", action, id)
	}

	a := res.Detail
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: stage %s of run %s is %s by %s\n",
		a.ID, a.Stage, a.RunID, a.Status, a.DecidedBy)
	return err
}

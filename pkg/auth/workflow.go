package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	userMachinePath = "pathfinder/user_machine/"

	statusValidated        = "validated"
	statusIssued           = "issued"
	workflowApproved       = "workflow_status_approved"
	workflowPending        = "workflow_status_internal_pending"
	maxWorkflowStatusFails = 5
)

var errPending = errors.New("verification pending")

func inquiryPath(machineID string) string {
	return fmt.Sprintf("pathfinder/inquiries/%s/user_view/", url.PathEscape(machineID))
}

func promptStatusPath(challengeID string) string {
	return fmt.Sprintf("push/%s/get_prompts_status/", url.PathEscape(challengeID))
}

func challengeRespondPath(challengeID string) string {
	return fmt.Sprintf("challenge/%s/respond/", url.PathEscape(challengeID))
}

// verify walks the verification workflow started by a token request: it
// answers the challenge, by waiting for app approval or by submitting a code
// obtained from the prompt, and then waits for the workflow to be approved.
func (a *Authenticator) verify(ctx context.Context, deviceToken, workflowID string) error {
	ctx, span := tracer.Start(ctx, "auth.Verify")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, a.verificationTimeout)
	defer cancel()

	var machine json.RawMessage
	err := a.client.PostJSON(ctx, userMachinePath, map[string]any{
		"device_id": deviceToken,
		"flow":      "suv",
		"input":     map[string]string{"workflow_id": workflowID},
	}, &machine)
	if err != nil {
		return fmt.Errorf("failed to start verification: %w", err)
	}

	machineID := gjson.GetBytes(machine, "id").String()
	if machineID == "" {
		return &AuthenticationError{Message: "verification workflow returned no machine id"}
	}

	if err := a.answerChallenge(ctx, machineID); err != nil {
		return a.timeoutError(ctx, err)
	}

	return a.timeoutError(ctx, a.awaitApproval(ctx, machineID))
}

func (a *Authenticator) poll(ctx context.Context, op backoff.Operation) error {
	policy := backoff.WithContext(backoff.NewConstantBackOff(a.pollInterval), ctx)
	return backoff.RetryNotify(op, policy, func(err error, next time.Duration) {
		if !errors.Is(err, errPending) {
			a.logger.WarnWithContext(ctx, "verification status check failed", zap.Error(err), zap.Duration("retry_in", next))
		}
	})
}

func (a *Authenticator) answerChallenge(ctx context.Context, machineID string) error {
	return a.poll(ctx, func() error {
		body, err := a.client.Get(ctx, inquiryPath(machineID), nil)
		if err != nil {
			return err
		}

		challenge := gjson.GetBytes(body, "context.sheriff_challenge")
		if !challenge.Exists() {
			return errPending
		}

		challengeType := challenge.Get("type").String()
		challengeStatus := challenge.Get("status").String()
		challengeID := challenge.Get("id").String()

		switch {
		case challengeType == "prompt":
			a.logger.InfoWithContext(ctx, "waiting for approval from the mobile app")
			return a.awaitPrompt(ctx, challengeID)
		case challengeStatus == statusValidated:
			return nil
		case (challengeType == "sms" || challengeType == "email") && challengeStatus == statusIssued:
			return a.respondToChallenge(ctx, challengeType, challengeID)
		default:
			return errPending
		}
	})
}

func (a *Authenticator) awaitPrompt(ctx context.Context, challengeID string) error {
	return a.poll(ctx, func() error {
		body, err := a.client.Get(ctx, promptStatusPath(challengeID), nil)
		if err != nil {
			return err
		}
		if gjson.GetBytes(body, "challenge_status").String() != statusValidated {
			return errPending
		}
		return nil
	})
}

func (a *Authenticator) respondToChallenge(ctx context.Context, channel, challengeID string) error {
	if a.prompt == nil {
		return backoff.Permanent(ErrPromptRequired)
	}

	code, err := a.prompt(ctx, channel)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to read verification code: %w", err))
	}

	var response json.RawMessage
	if err := a.client.PostForm(ctx, challengeRespondPath(challengeID), url.Values{"response": {code}}, &response); err != nil {
		return err
	}
	if gjson.GetBytes(response, "status").String() != statusValidated {
		return errPending
	}
	return nil
}

func (a *Authenticator) awaitApproval(ctx context.Context, machineID string) error {
	failures := 0
	return a.poll(ctx, func() error {
		var body json.RawMessage
		err := a.client.PostJSON(ctx, inquiryPath(machineID), map[string]any{
			"sequence":   0,
			"user_input": map[string]string{"status": "continue"},
		}, &body)
		if err != nil {
			failures++
			if failures >= maxWorkflowStatusFails {
				return backoff.Permanent(&AuthenticationError{Message: "unable to confirm verification: " + err.Error()})
			}
			return err
		}

		if gjson.GetBytes(body, "type_context.result").String() == workflowApproved {
			return nil
		}

		switch status := gjson.GetBytes(body, "verification_workflow.workflow_status").String(); status {
		case workflowApproved:
			return nil
		case workflowPending, "":
			return errPending
		default:
			failures++
			if failures >= maxWorkflowStatusFails {
				return backoff.Permanent(&AuthenticationError{Message: "unable to confirm verification: " + status})
			}
			return errPending
		}
	})
}

func (a *Authenticator) timeoutError(ctx context.Context, err error) error {
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrVerificationTimeout
	}
	return err
}

// Package engine is the REST client for the remote CAD execution engine's
// job API: activity (job template) management, work item submission, and
// status polling.
package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"casegen/internal/common/config"
	"casegen/internal/common/errors"
	commonhttp "casegen/internal/common/http"
	"casegen/internal/common/logger"
)

// Client wraps the engine's job API with auth and standardized errors.
type Client struct {
	baseURL    string
	nickname   string
	auth       *Authenticator
	httpClient *commonhttp.Client
	logger     logger.Logger
}

func NewClient(cfg config.EngineConfig, log logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		nickname:   cfg.Nickname,
		auth:       NewAuthenticator(cfg.AuthURL, cfg.ClientID, cfg.ClientSecret, cfg.Scope),
		httpClient: commonhttp.NewClient(config.GetDuration(cfg.Timeout)),
		logger:     log.WithFields(map[string]interface{}{"component": "engine-client"}),
	}
}

// QualifiedID returns the fully qualified activity reference bound to the
// stable production alias, e.g. "acct.CaseStudyXrefActivity+production".
func (c *Client) QualifiedID(activityID string) string {
	return fmt.Sprintf("%s.%s+%s", c.nickname, activityID, AliasProduction)
}

func (c *Client) authHeaders(ctx context.Context) (map[string]string, error) {
	token, err := c.auth.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{"Authorization": "Bearer " + token}, nil
}

// CreateActivity registers a job definition. A 409 surfaces as
// DEFINITION_CONFLICT so the builder can delete and recreate.
func (c *Client) CreateActivity(ctx context.Context, act *Activity) error {
	headers, err := c.authHeaders(ctx)
	if err != nil {
		return err
	}

	status, err := c.httpClient.DoJSON(ctx, "POST", c.baseURL+"/activities", headers, act, nil)
	if err != nil {
		if status == http.StatusConflict {
			return errors.NewDefinitionConflictError(act.ID)
		}
		return c.mapEngineError("create activity", status, err)
	}
	return nil
}

// DeleteActivity removes a job definition. Absence is not an error: cleanup
// must be idempotent because it runs on every outcome.
func (c *Client) DeleteActivity(ctx context.Context, activityID string) error {
	headers, err := c.authHeaders(ctx)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/activities/%s", c.baseURL, activityID)
	status, err := c.httpClient.DoJSON(ctx, "DELETE", url, headers, nil, nil)
	if err != nil {
		if status == http.StatusNotFound {
			return nil
		}
		return c.mapEngineError("delete activity", status, err)
	}
	return nil
}

// CreateAlias binds the stable alias to a freshly created activity version
// so work items never track version numbers.
func (c *Client) CreateAlias(ctx context.Context, activityID, alias string, version int) error {
	headers, err := c.authHeaders(ctx)
	if err != nil {
		return err
	}

	body := map[string]interface{}{"id": alias, "version": version}
	url := fmt.Sprintf("%s/activities/%s/aliases", c.baseURL, activityID)
	status, err := c.httpClient.DoJSON(ctx, "POST", url, headers, body, nil)
	if err != nil {
		if status == http.StatusConflict {
			// Alias exists from a prior run; repoint it.
			aliasURL := fmt.Sprintf("%s/activities/%s/aliases/%s", c.baseURL, activityID, alias)
			patchBody := map[string]interface{}{"version": version}
			if status, err := c.httpClient.DoJSON(ctx, "PATCH", aliasURL, headers, patchBody, nil); err != nil {
				return c.mapEngineError("update alias", status, err)
			}
			return nil
		}
		return c.mapEngineError("create alias", status, err)
	}
	return nil
}

type submitRequest struct {
	ActivityID string              `json:"activityId"`
	Arguments  map[string]Argument `json:"arguments"`
}

type submitResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// SubmitWorkItem creates one job instance bound to the run's arguments and
// returns its identifier.
func (c *Client) SubmitWorkItem(ctx context.Context, activityID string, args map[string]Argument) (string, error) {
	headers, err := c.authHeaders(ctx)
	if err != nil {
		return "", err
	}

	req := submitRequest{ActivityID: c.QualifiedID(activityID), Arguments: args}
	var resp submitResponse
	status, err := c.httpClient.DoJSON(ctx, "POST", c.baseURL+"/workitems", headers, req, &resp)
	if err != nil {
		return "", c.mapEngineError("submit workitem", status, err)
	}

	c.logger.Info("workitem submitted", map[string]interface{}{
		"workItemId": resp.ID,
		"activityId": activityID,
	})

	return resp.ID, nil
}

// GetWorkItemStatus polls one job instance.
func (c *Client) GetWorkItemStatus(ctx context.Context, workItemID string) (*WorkItemStatus, error) {
	headers, err := c.authHeaders(ctx)
	if err != nil {
		return nil, err
	}

	var wi WorkItemStatus
	url := fmt.Sprintf("%s/workitems/%s", c.baseURL, workItemID)
	status, err := c.httpClient.DoJSON(ctx, "GET", url, headers, nil, &wi)
	if err != nil {
		return nil, c.mapEngineError("poll workitem", status, err)
	}
	return &wi, nil
}

// FetchReport downloads the execution report from its signed URL. Callers
// treat failures here as best-effort.
func (c *Client) FetchReport(ctx context.Context, reportURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", reportURL, nil)
	if err != nil {
		return "", fmt.Errorf("create report request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("report fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read report: %w", err)
	}
	return string(body), nil
}

// mapEngineError converts engine API failures into standardized errors.
func (c *Client) mapEngineError(operation string, status int, err error) error {
	enhanced := fmt.Errorf("engine operation '%s' failed: %w", operation, err)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.NewAuthenticationError(enhanced.Error())
	case status == http.StatusNotFound:
		return errors.NewNotFoundError("Engine resource", enhanced.Error())
	default:
		return errors.NewExternalServiceError("engine", enhanced)
	}
}

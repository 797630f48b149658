package githubapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseURLConstant                = "https://api.github.com"
	authorizationHeaderNameConstant       = "Authorization"
	authorizationHeaderTemplateConstant   = "bearer %s"
	contentTypeHeaderNameConstant         = "Content-Type"
	contentTypeJSONValueConstant          = "application/json"
	acceptHeaderNameConstant              = "Accept"
	acceptHeaderValueConstant             = "application/vnd.github+json"
	organizationFieldNameConstant         = "organization"
	repositoryFieldNameConstant           = "repository"
	pathFieldNameConstant                 = "path"
	workflowsEndpointTemplateConstant     = "%s/repos/%s/%s/actions/workflows?per_page=100"
	fileContentEndpointTemplateConstant   = "%s/repos/%s/%s/contents/%s"
	dependabotEndpointTemplateConstant    = "%s/repos/%s/%s/vulnerability-alerts"
	pullRequestsEndpointTemplateConstant  = "%s/repos/%s/%s/pulls?state=closed&per_page=%d&page=%d"
	pullRequestEndpointTemplateConstant   = "%s/repos/%s/%s/pulls/%d"
	reviewsEndpointTemplateConstant       = "%s/repos/%s/%s/pulls/%d/reviews?per_page=%d&page=%d"
	commentsEndpointTemplateConstant      = "%s/repos/%s/%s/issues/%d/comments?per_page=%d&page=%d"
	restPageSizeConstant                  = 100
	listWorkflowsOperationConstant        = OperationName("ListWorkflows")
	getFileContentOperationConstant       = OperationName("GetFileContent")
	dependabotEnabledOperationConstant    = OperationName("IsDependabotEnabled")
	listPullRequestsOperationConstant     = OperationName("ListClosedPullRequests")
	pullRequestDetailOperationConstant    = OperationName("GetPullRequestDetail")
	listReviewsOperationConstant          = OperationName("ListReviews")
	listCommentsOperationConstant         = OperationName("ListComments")
	requestExecutedDebugMessageConstant   = "github api request executed"
	logFieldOperationConstant             = "operation"
	logFieldStatusCodeConstant            = "status_code"
	timestampLayoutConstant               = time.RFC3339
	base64PaddingTrimCutsetConstant       = "\n\r \t"
	requestCreationErrorTemplateConstant  = "unable to create %s request: %w"
	requestExecutionErrorTemplateConstant = "unable to execute %s request: %w"
)

// Client implements the repository data provider against the GitHub REST and
// GraphQL APIs.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	logger      *zap.Logger
}

// NewClient constructs a provider client. The access token must not be blank;
// httpClient and logger fall back to usable defaults when nil.
func NewClient(accessToken string, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	if len(strings.TrimSpace(accessToken)) == 0 {
		return nil, ErrAccessTokenMissing
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient:  httpClient,
		baseURL:     defaultBaseURLConstant,
		accessToken: accessToken,
		logger:      logger,
	}, nil
}

// SetBaseURL overrides the API endpoint, primarily for tests.
func (client *Client) SetBaseURL(baseURL string) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if len(trimmed) > 0 {
		client.baseURL = trimmed
	}
}

type apiResponse struct {
	StatusCode int
	Body       []byte
}

func (client *Client) executeRequest(executionContext context.Context, operation OperationName, method string, url string, payload []byte) (apiResponse, error) {
	var bodyReader io.Reader
	if len(payload) > 0 {
		bodyReader = bytes.NewReader(payload)
	}

	request, requestError := http.NewRequestWithContext(executionContext, method, url, bodyReader)
	if requestError != nil {
		return apiResponse{}, fmt.Errorf(requestCreationErrorTemplateConstant, operation, requestError)
	}

	request.Header.Set(authorizationHeaderNameConstant, fmt.Sprintf(authorizationHeaderTemplateConstant, client.accessToken))
	request.Header.Set(contentTypeHeaderNameConstant, contentTypeJSONValueConstant)
	request.Header.Set(acceptHeaderNameConstant, acceptHeaderValueConstant)

	response, executionError := client.httpClient.Do(request)
	if executionError != nil {
		return apiResponse{}, TransportError{Operation: operation, Cause: fmt.Errorf(requestExecutionErrorTemplateConstant, operation, executionError)}
	}
	defer func() { _ = response.Body.Close() }()

	responseBody, readError := io.ReadAll(response.Body)
	if readError != nil {
		return apiResponse{}, TransportError{Operation: operation, StatusCode: response.StatusCode, Cause: readError}
	}

	client.logger.Debug(
		requestExecutedDebugMessageConstant,
		zap.String(logFieldOperationConstant, string(operation)),
		zap.Int(logFieldStatusCodeConstant, response.StatusCode),
	)

	return apiResponse{StatusCode: response.StatusCode, Body: responseBody}, nil
}

func validateIdentifier(fieldName string, value string) error {
	if len(strings.TrimSpace(value)) == 0 {
		return InvalidInputError{FieldName: fieldName, Message: requiredValueMessageConstant}
	}
	return nil
}

func parseTimestamp(raw string) *time.Time {
	if len(strings.TrimSpace(raw)) == 0 {
		return nil
	}
	parsed, parseError := time.Parse(timestampLayoutConstant, raw)
	if parseError != nil {
		return nil
	}
	return &parsed
}

// ListWorkflows enumerates workflow definitions registered on a repository.
func (client *Client) ListWorkflows(executionContext context.Context, organization string, repository string) (WorkflowInventory, error) {
	if validationError := validateIdentifier(organizationFieldNameConstant, organization); validationError != nil {
		return WorkflowInventory{}, validationError
	}
	if validationError := validateIdentifier(repositoryFieldNameConstant, repository); validationError != nil {
		return WorkflowInventory{}, validationError
	}

	url := fmt.Sprintf(workflowsEndpointTemplateConstant, client.baseURL, organization, repository)
	response, requestError := client.executeRequest(executionContext, listWorkflowsOperationConstant, http.MethodGet, url, nil)
	if requestError != nil {
		return WorkflowInventory{}, requestError
	}
	if response.StatusCode != http.StatusOK {
		return WorkflowInventory{}, TransportError{Operation: listWorkflowsOperationConstant, StatusCode: response.StatusCode}
	}

	var decoded struct {
		TotalCount int `json:"total_count"`
		Workflows  []struct {
			Path string `json:"path"`
			Name string `json:"name"`
		} `json:"workflows"`
	}
	if decodingError := json.Unmarshal(response.Body, &decoded); decodingError != nil {
		return WorkflowInventory{}, ResponseDecodingError{Operation: listWorkflowsOperationConstant, Cause: decodingError}
	}

	inventory := WorkflowInventory{TotalCount: decoded.TotalCount}
	for _, workflowEntry := range decoded.Workflows {
		inventory.Workflows = append(inventory.Workflows, Workflow{Path: workflowEntry.Path, Name: workflowEntry.Name})
	}
	return inventory, nil
}

// GetFileContent fetches a file from the repository contents endpoint. The
// second return value reports whether the file exists; a missing file is not
// an error.
func (client *Client) GetFileContent(executionContext context.Context, organization string, repository string, path string) (string, bool, error) {
	if validationError := validateIdentifier(organizationFieldNameConstant, organization); validationError != nil {
		return "", false, validationError
	}
	if validationError := validateIdentifier(repositoryFieldNameConstant, repository); validationError != nil {
		return "", false, validationError
	}
	if validationError := validateIdentifier(pathFieldNameConstant, path); validationError != nil {
		return "", false, validationError
	}

	url := fmt.Sprintf(fileContentEndpointTemplateConstant, client.baseURL, organization, repository, path)
	response, requestError := client.executeRequest(executionContext, getFileContentOperationConstant, http.MethodGet, url, nil)
	if requestError != nil {
		return "", false, requestError
	}
	if response.StatusCode == http.StatusNotFound {
		return "", false, nil
	}
	if response.StatusCode != http.StatusOK {
		return "", false, TransportError{Operation: getFileContentOperationConstant, StatusCode: response.StatusCode}
	}

	var decoded struct {
		Content string `json:"content"`
	}
	if decodingError := json.Unmarshal(response.Body, &decoded); decodingError != nil {
		return "", false, ResponseDecodingError{Operation: getFileContentOperationConstant, Cause: decodingError}
	}

	normalizedContent := strings.Map(func(character rune) rune {
		if strings.ContainsRune(base64PaddingTrimCutsetConstant, character) {
			return -1
		}
		return character
	}, decoded.Content)

	decodedContent, decodeError := base64.StdEncoding.DecodeString(normalizedContent)
	if decodeError != nil {
		return "", false, ResponseDecodingError{Operation: getFileContentOperationConstant, Cause: decodeError}
	}
	return string(decodedContent), true, nil
}

// IsDependabotEnabled probes the vulnerability-alerts endpoint: a 204 response
// signals the feature is active, a 404 signals it is off.
func (client *Client) IsDependabotEnabled(executionContext context.Context, organization string, repository string) (bool, error) {
	if validationError := validateIdentifier(organizationFieldNameConstant, organization); validationError != nil {
		return false, validationError
	}
	if validationError := validateIdentifier(repositoryFieldNameConstant, repository); validationError != nil {
		return false, validationError
	}

	url := fmt.Sprintf(dependabotEndpointTemplateConstant, client.baseURL, organization, repository)
	response, requestError := client.executeRequest(executionContext, dependabotEnabledOperationConstant, http.MethodGet, url, nil)
	if requestError != nil {
		return false, requestError
	}

	switch response.StatusCode {
	case http.StatusNoContent:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, TransportError{Operation: dependabotEnabledOperationConstant, StatusCode: response.StatusCode}
	}
}

type pullRequestPayload struct {
	Number    int    `json:"number"`
	CreatedAt string `json:"created_at"`
	ClosedAt  string `json:"closed_at"`
	MergedAt  string `json:"merged_at"`
	User      struct {
		Login string `json:"login"`
	} `json:"user"`
}

func (payload pullRequestPayload) toPullRequest() PullRequest {
	return PullRequest{
		Number:    payload.Number,
		Author:    payload.User.Login,
		CreatedAt: parseTimestamp(payload.CreatedAt),
		ClosedAt:  parseTimestamp(payload.ClosedAt),
		MergedAt:  parseTimestamp(payload.MergedAt),
	}
}

// ListClosedPullRequests retrieves every closed pull request, walking the
// paginated list endpoint until a short page is returned.
func (client *Client) ListClosedPullRequests(executionContext context.Context, organization string, repository string) ([]PullRequest, error) {
	if validationError := validateIdentifier(organizationFieldNameConstant, organization); validationError != nil {
		return nil, validationError
	}
	if validationError := validateIdentifier(repositoryFieldNameConstant, repository); validationError != nil {
		return nil, validationError
	}

	var pullRequests []PullRequest
	for pageNumber := 1; ; pageNumber++ {
		url := fmt.Sprintf(pullRequestsEndpointTemplateConstant, client.baseURL, organization, repository, restPageSizeConstant, pageNumber)
		response, requestError := client.executeRequest(executionContext, listPullRequestsOperationConstant, http.MethodGet, url, nil)
		if requestError != nil {
			return nil, requestError
		}
		if response.StatusCode != http.StatusOK {
			return nil, TransportError{Operation: listPullRequestsOperationConstant, StatusCode: response.StatusCode}
		}

		var page []pullRequestPayload
		if decodingError := json.Unmarshal(response.Body, &page); decodingError != nil {
			return nil, ResponseDecodingError{Operation: listPullRequestsOperationConstant, Cause: decodingError}
		}

		for _, payload := range page {
			pullRequests = append(pullRequests, payload.toPullRequest())
		}

		if len(page) < restPageSizeConstant {
			break
		}
	}
	return pullRequests, nil
}

// GetPullRequestDetail fetches the size fields only present on the pull
// request detail endpoint.
func (client *Client) GetPullRequestDetail(executionContext context.Context, organization string, repository string, number int) (PullRequestDetail, error) {
	if validationError := validateIdentifier(organizationFieldNameConstant, organization); validationError != nil {
		return PullRequestDetail{}, validationError
	}
	if validationError := validateIdentifier(repositoryFieldNameConstant, repository); validationError != nil {
		return PullRequestDetail{}, validationError
	}

	url := fmt.Sprintf(pullRequestEndpointTemplateConstant, client.baseURL, organization, repository, number)
	response, requestError := client.executeRequest(executionContext, pullRequestDetailOperationConstant, http.MethodGet, url, nil)
	if requestError != nil {
		return PullRequestDetail{}, requestError
	}
	if response.StatusCode != http.StatusOK {
		return PullRequestDetail{}, TransportError{Operation: pullRequestDetailOperationConstant, StatusCode: response.StatusCode}
	}

	var decoded struct {
		Additions    int `json:"additions"`
		Deletions    int `json:"deletions"`
		ChangedFiles int `json:"changed_files"`
	}
	if decodingError := json.Unmarshal(response.Body, &decoded); decodingError != nil {
		return PullRequestDetail{}, ResponseDecodingError{Operation: pullRequestDetailOperationConstant, Cause: decodingError}
	}
	return PullRequestDetail{
		Additions:    decoded.Additions,
		Deletions:    decoded.Deletions,
		ChangedFiles: decoded.ChangedFiles,
	}, nil
}

// ListReviews retrieves every review submitted on a pull request.
func (client *Client) ListReviews(executionContext context.Context, organization string, repository string, number int) ([]Review, error) {
	if validationError := validateIdentifier(organizationFieldNameConstant, organization); validationError != nil {
		return nil, validationError
	}
	if validationError := validateIdentifier(repositoryFieldNameConstant, repository); validationError != nil {
		return nil, validationError
	}

	var reviews []Review
	for pageNumber := 1; ; pageNumber++ {
		url := fmt.Sprintf(reviewsEndpointTemplateConstant, client.baseURL, organization, repository, number, restPageSizeConstant, pageNumber)
		response, requestError := client.executeRequest(executionContext, listReviewsOperationConstant, http.MethodGet, url, nil)
		if requestError != nil {
			return nil, requestError
		}
		if response.StatusCode != http.StatusOK {
			return nil, TransportError{Operation: listReviewsOperationConstant, StatusCode: response.StatusCode}
		}

		var page []struct {
			State       string `json:"state"`
			SubmittedAt string `json:"submitted_at"`
			User        struct {
				Login string `json:"login"`
			} `json:"user"`
		}
		if decodingError := json.Unmarshal(response.Body, &page); decodingError != nil {
			return nil, ResponseDecodingError{Operation: listReviewsOperationConstant, Cause: decodingError}
		}

		for _, reviewEntry := range page {
			reviews = append(reviews, Review{
				Author:      reviewEntry.User.Login,
				State:       reviewEntry.State,
				SubmittedAt: parseTimestamp(reviewEntry.SubmittedAt),
			})
		}

		if len(page) < restPageSizeConstant {
			break
		}
	}
	return reviews, nil
}

// ListComments retrieves every issue comment left on a pull request.
func (client *Client) ListComments(executionContext context.Context, organization string, repository string, number int) ([]Comment, error) {
	if validationError := validateIdentifier(organizationFieldNameConstant, organization); validationError != nil {
		return nil, validationError
	}
	if validationError := validateIdentifier(repositoryFieldNameConstant, repository); validationError != nil {
		return nil, validationError
	}

	var comments []Comment
	for pageNumber := 1; ; pageNumber++ {
		url := fmt.Sprintf(commentsEndpointTemplateConstant, client.baseURL, organization, repository, number, restPageSizeConstant, pageNumber)
		response, requestError := client.executeRequest(executionContext, listCommentsOperationConstant, http.MethodGet, url, nil)
		if requestError != nil {
			return nil, requestError
		}
		if response.StatusCode != http.StatusOK {
			return nil, TransportError{Operation: listCommentsOperationConstant, StatusCode: response.StatusCode}
		}

		var page []struct {
			CreatedAt string `json:"created_at"`
			User      struct {
				Login string `json:"login"`
			} `json:"user"`
		}
		if decodingError := json.Unmarshal(response.Body, &page); decodingError != nil {
			return nil, ResponseDecodingError{Operation: listCommentsOperationConstant, Cause: decodingError}
		}

		for _, commentEntry := range page {
			comments = append(comments, Comment{
				Author:    commentEntry.User.Login,
				CreatedAt: parseTimestamp(commentEntry.CreatedAt),
			})
		}

		if len(page) < restPageSizeConstant {
			break
		}
	}
	return comments, nil
}

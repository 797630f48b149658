package githubapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	graphqlEndpointTemplateConstant         = "%s/graphql"
	repositoryMetadataOperationConstant     = OperationName("GetRepositoryMetadata")
	listRepositoriesOperationConstant       = OperationName("ListOrganizationRepositories")
	graphqlErrorsMessageTemplateConstant    = "graphql query returned errors: %s"
	graphqlErrorSeparatorConstant           = "; "
	graphqlPayloadEncodingTemplateConstant  = "unable to encode %s payload: %w"
	organizationLoginVariableConstant       = "login"
	repositoryNameVariableConstant          = "name"
	paginationCursorVariableConstant        = "cursor"
	repositoryMetadataQueryDocumentConstant = `
query ($login: String!, $name: String!) {
  repository(name: $name, owner: $login) {
    vulnerabilityAlerts(first: 100, states: [OPEN]) {
      nodes {
        createdAt
        securityVulnerability {
          package { name }
          advisory { severity }
        }
      }
    }
    rulesets(first: 10) {
      nodes {
        name
        enforcement
        target
        bypassActors(first: 10) {
          edges { node { organizationAdmin } }
        }
        conditions {
          refName { include }
        }
        rules(first: 20) {
          nodes {
            type
            parameters {
              ... on PullRequestParameters {
                requiredApprovingReviewCount
              }
            }
          }
        }
      }
    }
    hasWikiEnabled
    hasIssuesEnabled
    hasProjectsEnabled
    discussions { totalCount }
    deleteBranchOnMerge
    squashMergeAllowed
    licenseInfo { key }
    defaultBranchRef { name }
  }
}`
	organizationRepositoriesQueryDocumentConstant = `
query ($login: String!, $cursor: String) {
  organization(login: $login) {
    repositories(first: 100, after: $cursor) {
      totalCount
      pageInfo { hasNextPage endCursor }
      nodes { name }
    }
  }
}`
)

type graphqlRequestPayload struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlErrorEntry struct {
	Message string `json:"message"`
}

func (client *Client) executeGraphQL(executionContext context.Context, operation OperationName, query string, variables map[string]any, target any) error {
	payload, encodingError := json.Marshal(graphqlRequestPayload{Query: query, Variables: variables})
	if encodingError != nil {
		return fmt.Errorf(graphqlPayloadEncodingTemplateConstant, operation, encodingError)
	}

	url := fmt.Sprintf(graphqlEndpointTemplateConstant, client.baseURL)
	response, requestError := client.executeRequest(executionContext, operation, http.MethodPost, url, payload)
	if requestError != nil {
		return requestError
	}
	if response.StatusCode != http.StatusOK {
		return TransportError{Operation: operation, StatusCode: response.StatusCode}
	}

	var envelope struct {
		Data   json.RawMessage     `json:"data"`
		Errors []graphqlErrorEntry `json:"errors"`
	}
	if decodingError := json.Unmarshal(response.Body, &envelope); decodingError != nil {
		return ResponseDecodingError{Operation: operation, Cause: decodingError}
	}

	// GitHub returns 200 with an errors array when the query is malformed.
	if len(envelope.Errors) > 0 {
		messages := make([]string, 0, len(envelope.Errors))
		for _, errorEntry := range envelope.Errors {
			messages = append(messages, errorEntry.Message)
		}
		return TransportError{
			Operation:  operation,
			StatusCode: response.StatusCode,
			Cause:      fmt.Errorf(graphqlErrorsMessageTemplateConstant, strings.Join(messages, graphqlErrorSeparatorConstant)),
		}
	}

	if decodingError := json.Unmarshal(envelope.Data, target); decodingError != nil {
		return ResponseDecodingError{Operation: operation, Cause: decodingError}
	}
	return nil
}

// GetRepositoryMetadata resolves repository settings, open vulnerability
// alerts, and branch rulesets in a single GraphQL query.
func (client *Client) GetRepositoryMetadata(executionContext context.Context, organization string, repository string) (RepositoryMetadata, error) {
	if validationError := validateIdentifier(organizationFieldNameConstant, organization); validationError != nil {
		return RepositoryMetadata{}, validationError
	}
	if validationError := validateIdentifier(repositoryFieldNameConstant, repository); validationError != nil {
		return RepositoryMetadata{}, validationError
	}

	var decoded struct {
		Repository struct {
			VulnerabilityAlerts struct {
				Nodes []struct {
					CreatedAt             string `json:"createdAt"`
					SecurityVulnerability struct {
						Package struct {
							Name string `json:"name"`
						} `json:"package"`
						Advisory struct {
							Severity string `json:"severity"`
						} `json:"advisory"`
					} `json:"securityVulnerability"`
				} `json:"nodes"`
			} `json:"vulnerabilityAlerts"`
			Rulesets struct {
				Nodes []struct {
					Name         string `json:"name"`
					Enforcement  string `json:"enforcement"`
					Target       string `json:"target"`
					BypassActors struct {
						Edges []struct {
							Node struct {
								OrganizationAdmin bool `json:"organizationAdmin"`
							} `json:"node"`
						} `json:"edges"`
					} `json:"bypassActors"`
					Conditions struct {
						RefName struct {
							Include []string `json:"include"`
						} `json:"refName"`
					} `json:"conditions"`
					Rules struct {
						Nodes []struct {
							Type       string `json:"type"`
							Parameters struct {
								RequiredApprovingReviewCount int `json:"requiredApprovingReviewCount"`
							} `json:"parameters"`
						} `json:"nodes"`
					} `json:"rules"`
				} `json:"nodes"`
			} `json:"rulesets"`
			HasWikiEnabled     bool `json:"hasWikiEnabled"`
			HasIssuesEnabled   bool `json:"hasIssuesEnabled"`
			HasProjectsEnabled bool `json:"hasProjectsEnabled"`
			Discussions        struct {
				TotalCount int `json:"totalCount"`
			} `json:"discussions"`
			DeleteBranchOnMerge bool `json:"deleteBranchOnMerge"`
			SquashMergeAllowed  bool `json:"squashMergeAllowed"`
			LicenseInfo         *struct {
				Key string `json:"key"`
			} `json:"licenseInfo"`
			DefaultBranchRef *struct {
				Name string `json:"name"`
			} `json:"defaultBranchRef"`
		} `json:"repository"`
	}

	variables := map[string]any{
		organizationLoginVariableConstant: organization,
		repositoryNameVariableConstant:    repository,
	}
	if queryError := client.executeGraphQL(executionContext, repositoryMetadataOperationConstant, repositoryMetadataQueryDocumentConstant, variables, &decoded); queryError != nil {
		return RepositoryMetadata{}, queryError
	}

	metadata := RepositoryMetadata{
		HasWikiEnabled:      decoded.Repository.HasWikiEnabled,
		HasIssuesEnabled:    decoded.Repository.HasIssuesEnabled,
		HasProjectsEnabled:  decoded.Repository.HasProjectsEnabled,
		DiscussionsCount:    decoded.Repository.Discussions.TotalCount,
		DeleteBranchOnMerge: decoded.Repository.DeleteBranchOnMerge,
		SquashMergeAllowed:  decoded.Repository.SquashMergeAllowed,
	}

	if decoded.Repository.LicenseInfo != nil {
		metadata.HasLicense = true
		metadata.LicenseKey = decoded.Repository.LicenseInfo.Key
	}
	if decoded.Repository.DefaultBranchRef != nil {
		metadata.DefaultBranch = decoded.Repository.DefaultBranchRef.Name
	}

	for _, alertNode := range decoded.Repository.VulnerabilityAlerts.Nodes {
		createdAt := parseTimestamp(alertNode.CreatedAt)
		if createdAt == nil {
			continue
		}
		metadata.VulnerabilityAlerts = append(metadata.VulnerabilityAlerts, VulnerabilityAlert{
			CreatedAt:   *createdAt,
			PackageName: alertNode.SecurityVulnerability.Package.Name,
			Severity:    alertNode.SecurityVulnerability.Advisory.Severity,
		})
	}

	for _, rulesetNode := range decoded.Repository.Rulesets.Nodes {
		ruleset := Ruleset{
			Name:                      rulesetNode.Name,
			Enforcement:               rulesetNode.Enforcement,
			Target:                    rulesetNode.Target,
			IncludedReferencePatterns: rulesetNode.Conditions.RefName.Include,
		}
		for _, ruleNode := range rulesetNode.Rules.Nodes {
			ruleset.RuleTypes = append(ruleset.RuleTypes, ruleNode.Type)
			if ruleNode.Parameters.RequiredApprovingReviewCount > ruleset.RequiredApprovingReviews {
				ruleset.RequiredApprovingReviews = ruleNode.Parameters.RequiredApprovingReviewCount
			}
		}
		for _, bypassEdge := range rulesetNode.BypassActors.Edges {
			if bypassEdge.Node.OrganizationAdmin {
				ruleset.HasOrganizationAdminBypass = true
			}
		}
		metadata.Rulesets = append(metadata.Rulesets, ruleset)
	}

	return metadata, nil
}

// ListOrganizationRepositories enumerates repository names for an
// organization, following pagination cursors until exhausted.
func (client *Client) ListOrganizationRepositories(executionContext context.Context, organization string) ([]string, error) {
	if validationError := validateIdentifier(organizationFieldNameConstant, organization); validationError != nil {
		return nil, validationError
	}

	var repositoryNames []string
	var cursor *string
	for {
		var decoded struct {
			Organization struct {
				Repositories struct {
					TotalCount int `json:"totalCount"`
					PageInfo   struct {
						HasNextPage bool   `json:"hasNextPage"`
						EndCursor   string `json:"endCursor"`
					} `json:"pageInfo"`
					Nodes []struct {
						Name string `json:"name"`
					} `json:"nodes"`
				} `json:"repositories"`
			} `json:"organization"`
		}

		variables := map[string]any{organizationLoginVariableConstant: organization}
		if cursor != nil {
			variables[paginationCursorVariableConstant] = *cursor
		}
		if queryError := client.executeGraphQL(executionContext, listRepositoriesOperationConstant, organizationRepositoriesQueryDocumentConstant, variables, &decoded); queryError != nil {
			return nil, queryError
		}

		for _, repositoryNode := range decoded.Organization.Repositories.Nodes {
			repositoryNames = append(repositoryNames, repositoryNode.Name)
		}

		if !decoded.Organization.Repositories.PageInfo.HasNextPage {
			break
		}
		endCursor := decoded.Organization.Repositories.PageInfo.EndCursor
		cursor = &endCursor
	}
	return repositoryNames, nil
}

// Package githubapi implements the repository data provider backed by the
// GitHub REST and GraphQL APIs. It exposes Client with typed operations for
// workflow listings, repository metadata, dependency-alert status, and
// paginated pull request data, plus typed errors distinguishing transport,
// decoding, and input validation failures.
package githubapi

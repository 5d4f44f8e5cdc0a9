// Package octokit provides the public types of a route-driven GitHub REST
// API client.
//
// Operations are not hand-written: they are generated at load time from a
// route specification (see package routes) and grouped by resource, such as
// "issues" or "pulls". Each operation validates its arguments before any
// network I/O, routes them into the URL path, query string, headers or JSON
// body, and returns a Result.
//
// Basic usage:
//
//	client, err := ghclient.New(ctx, &octokit.Config{
//		Auth:        octokit.AuthToken,
//		Credentials: octokit.Credentials{Token: os.Getenv("GITHUB_TOKEN")},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	repo, err := client.Call(ctx, "repos", "get", octokit.Args{
//		"owner": "octocat",
//		"repo":  "hello-world",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Println(repo.Data().Get("full_name"))
//
// # Chaining
//
// A Result embeds a new client snapshot that remembers the path values used
// by the call. Later calls on that snapshot may omit them:
//
//	issues, err := repo.Call(ctx, "issues", "list_for_repo", nil)
//
// Snapshots are values: a call never changes the client it was made on, so
// independent snapshots are safe to use from different goroutines.
//
// # Pagination
//
// Paginate follows Link headers lazily:
//
//	op, _ := client.Operation("issues", "list_for_repo")
//	for body, err := range octokit.Paginate(ctx, octokit.Pages(op), 1, args) {
//		...
//	}
//
// # Errors
//
// Invalid arguments return a *ParameterError. Responses with a status of
// 400 or above return the Result together with a *ResponseError; use
// IsNotFound, IsUnauthorized, IsForbidden and IsRateLimited to classify them.
package octokit

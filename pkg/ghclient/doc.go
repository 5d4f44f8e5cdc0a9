// Package ghclient is the primary entry point for constructing a GitHub REST
// API client that implements the octokit.Client interface.
//
// Operations are generated from a route specification rather than written
// by hand, so every endpoint of the selected route set is callable by its
// resource group and operation name.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/octokit/pkg/ghclient"
//	  "github.com/fivetwenty-io/octokit/pkg/octokit"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  gh, err := ghclient.NewWithToken(ctx, "ghp_...")
//	  if err != nil { log.Fatal(err) }
//
//	  repo, err := gh.Call(ctx, "repos", "get", octokit.Args{"owner": "octocat", "repo": "hello-world"})
//	  if err != nil { log.Fatal(err) }
//
//	  // The result is itself a client that remembers owner and repo.
//	  issues, err := repo.Call(ctx, "issues", "list_for_repo", octokit.Args{"state": "open"})
//	  if err != nil { log.Fatal(err) }
//	  _ = issues.Data()
//	}
//
// # Enterprise Server
//
// NewEnterprise selects a GitHub Enterprise Server endpoint and route set,
// e.g. "ghe-2.18". Config.SkipTLSVerify is honored only when OCTOKIT_DEV_MODE
// is set, to avoid accidental insecure usage in production environments.
//
// # Helpers
//
// NewAnonymous, NewWithToken, NewWithBasicAuth, NewWithApp and
// NewWithInstallation wrap New with the matching authentication scheme.
package ghclient

// Package secret provides a small, dependency-light secret resolution layer.
//
// Health indicator configuration routinely carries credentials: database
// DSNs, Redis passwords, bearer tokens for the permission backend. This
// package keeps those out of config files:
//   - Strict environment expansion (see ExpandEnvStrict)
//   - Pluggable secret providers (see Provider + Registry)
//   - Resolving secret references in configuration values (see Resolver)
//
// References use the prefix "secretref:":
//   - Full value:  secretref:env:REDIS_PASSWORD
//   - Inline use:  Bearer secretref:env:POLICY_TOKEN
package secret

// Package config loads the deployment configuration: identities of the
// monitored target, pool, owner, and trigger, the event subscription set,
// the drop threshold, and operator tunables. Sources are a JSON or YAML
// file overlaid by DROSERA_* environment variables.
package config

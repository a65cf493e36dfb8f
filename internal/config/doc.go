// Package config loads, normalizes, and validates narrator configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads .env files, and honours environment
// fallbacks such as OPENROUTER_API_KEY, REPLICATE_API_TOKEN and
// ELEVENLABS_API_KEY. Provider credentials are optional at load time so the CLI
// can inspect the queue without them; stages report missing keys as
// configuration errors when they run.
package config

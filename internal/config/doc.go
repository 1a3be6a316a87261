// Package config loads, normalizes, and validates subburn configuration.
//
// Configuration comes from a TOML file (~/.config/subburn/config.toml or a
// project-local subburn.toml) with environment fallbacks for deployment
// secrets (SUPABASE_URL, SUPABASE_ANON_KEY, FFMPEG, SUBBURN_PROXY,
// SUBBURN_COOKIES). The resulting Config is constructed once at process
// start and passed explicitly into the dispatcher and worker; nothing else
// in the repository reads the environment.
package config

// Package config loads service configuration.
//
// Precedence is defaults, then the YAML file, then environment
// variables with the AGENTD prefix. Nested keys join with underscores,
// so server.http_port becomes AGENTD_SERVER_HTTP_PORT.
package config

// Package infra contains technical adapters such as the backend REST
// client, channel transports and metrics exporters. These packages should
// depend only on the interfaces defined in the core packages.
package infra

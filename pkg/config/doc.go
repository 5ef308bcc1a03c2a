// Package config loads the videoroom runtime configuration from the process
// environment.
//
// Every variable carries the VIDEOROOM_ prefix:
//
//	APP_ID                 application id handed to the RTC SDK (required)
//	TOKEN                  join token; the literal "null" means no token
//	TURN_SERVER_URL        TURN relay host; empty disables relay configuration
//	TURN_USERNAME          TURN credentials
//	TURN_PASSWORD
//	TURN_UDP_PORT          relay ports; 0 omits the port
//	TURN_TCP_PORT
//	TURN_FORCE             force relayed transport (default true)
//	CLIENT_MODE            rtc | live (default rtc)
//	CODEC                  vp8 | vp9 | h264 (default vp8)
//	LISTEN                 HTTP listen address (default :8080)
//	UI_VARIANT             call | room (default call)
//	SDK                    loopback | pion (default loopback)
//	GATEWAY_URL            conference gateway websocket URL (pion SDK)
//	METRICS_PATH           Prometheus endpoint (default /metrics)
//	SESSION_IDLE_TIMEOUT   browser session expiry (default 10m)
//	MDNS                   advertise the UI over mDNS
//	MDNS_INSTANCE          mDNS instance name (default videoroom)
//	TLS_DOMAINS            comma separated domains for ACME certificates
//	TLS_CACHE_DIR          certificate cache directory
//	OTEL_ENDPOINT          OTLP/HTTP trace collector; empty disables tracing
//
// The environment is read once at startup. A missing application id is not a
// load error: it is reported by Validate so the UI can show it.
package config

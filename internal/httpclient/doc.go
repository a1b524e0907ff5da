// Package httpclient builds the HTTP clients used to fetch store websites.
//
// Every client gets its own cookie jar, a per-request timeout and a redirect
// limit. An optional SOCKS5 proxy routes all connections through
// golang.org/x/net/proxy, which is useful when crawling from a network that
// only allows outbound traffic through a proxy.
package httpclient

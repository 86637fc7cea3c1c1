package web

import (
	"net"
	"strings"

	"github.com/kataras/iris/v12"
)

const clientIPKey = "client_ip"

var trustedProxies = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"::1/128",
	"fc00::/7",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(err)
		}
		nets = append(nets, network)
	}
	return nets
}

func isPrivateIP(ip net.IP) bool {
	for _, network := range trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP resolves the caller's address. Forwarding headers are only
// honoured when the direct peer is a private (proxy) address.
func ClientIP(remoteAddr, forwardedFor, realIP string) string {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}

	remoteIP := net.ParseIP(host)
	if remoteIP == nil || !isPrivateIP(remoteIP) {
		return host
	}

	if forwardedFor != "" {
		for _, ip := range strings.Split(forwardedFor, ",") {
			parsedIP := net.ParseIP(strings.TrimSpace(ip))
			if parsedIP != nil && !isPrivateIP(parsedIP) {
				return parsedIP.String()
			}
		}
	}

	if realIP != "" {
		parsedIP := net.ParseIP(strings.TrimSpace(realIP))
		if parsedIP != nil && !isPrivateIP(parsedIP) {
			return parsedIP.String()
		}
	}

	return host
}

func ProxyIPMiddleware(ctx iris.Context) {
	ip := ClientIP(ctx.Request().RemoteAddr, ctx.GetHeader("X-Forwarded-For"), ctx.GetHeader("X-Real-IP"))
	ctx.Values().Set(clientIPKey, ip)
	ctx.Next()
}

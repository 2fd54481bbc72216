package providers

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildEndpoint combines the configured base address with a request path.
//
// Rules:
//   - an explicit BaseURL wins over the local endpoint descriptor;
//   - a base address that already carries a scheme is used verbatim and
//     any configured port is ignored (a scheme-qualified base is assumed
//     complete);
//   - otherwise a scheme is synthesized (endpoint scheme, default http)
//     and the port, when present, is appended.
//
// Rewrite rules are applied last: a request addressed to a matching host
// is redirected to the rule's replacement base with the same path. This
// keeps hosted-API credentials out of client contexts that front the
// backend through a same-origin proxy.
func (p *BaseProvider) BuildEndpoint(path string) string {
	base := p.config.BaseURL

	if base == "" && p.config.Endpoint != nil {
		ep := p.config.Endpoint
		base = ep.Host
		if !strings.Contains(base, "://") {
			scheme := ep.Scheme
			if scheme == "" {
				scheme = "http"
			}
			if ep.Port > 0 {
				base = fmt.Sprintf("%s://%s:%d", scheme, base, ep.Port)
			} else {
				base = fmt.Sprintf("%s://%s", scheme, base)
			}
		}
	} else if base != "" && !strings.Contains(base, "://") {
		base = "http://" + base
	}

	full := joinPath(base, path)
	return p.applyRewrites(full, path)
}

// applyRewrites redirects the URL to a rule's replacement base when its
// host matches. The first matching rule wins.
func (p *BaseProvider) applyRewrites(full, path string) string {
	if len(p.config.Rewrites) == 0 {
		return full
	}

	u, err := url.Parse(full)
	if err != nil {
		return full
	}

	for _, rule := range p.config.Rewrites {
		if rule.MatchHost == "" || rule.ReplaceBase == "" {
			continue
		}
		if u.Host == rule.MatchHost || u.Hostname() == rule.MatchHost {
			return joinPath(rule.ReplaceBase, path)
		}
	}
	return full
}

// AuthHeaders constructs the authentication headers for a request.
// A local endpoint declaring bearer auth supplies its own credentials;
// otherwise a configured API key is always emitted as a bearer token,
// whatever auth mode is nominally set.
func (p *BaseProvider) AuthHeaders() map[string]string {
	headers := make(map[string]string)

	if ep := p.config.Endpoint; ep != nil && ep.AuthMode == AuthModeBearer && ep.Credentials != "" {
		headers["Authorization"] = "Bearer " + ep.Credentials
		return headers
	}
	if p.config.APIKey != "" {
		headers["Authorization"] = "Bearer " + p.config.APIKey
	}
	return headers
}

// joinPath concatenates a base address and a path with exactly one slash
// between them.
func joinPath(base, path string) string {
	base = strings.TrimRight(base, "/")
	if path == "" {
		return base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

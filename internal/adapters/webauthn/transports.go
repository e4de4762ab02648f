package webauthn

import "github.com/go-webauthn/webauthn/protocol"

func toTransports(in []string) []protocol.AuthenticatorTransport {
	if len(in) == 0 {
		return nil
	}
	out := make([]protocol.AuthenticatorTransport, 0, len(in))
	for _, t := range in {
		out = append(out, protocol.AuthenticatorTransport(t))
	}
	return out
}

func fromTransports(in []protocol.AuthenticatorTransport) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, t := range in {
		out = append(out, string(t))
	}
	return out
}

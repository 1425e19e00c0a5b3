package xmpp

import "testing"

func TestParseStreamOpenExtractsID(t *testing.T) {
	id, ok := parseStreamOpen(`<stream:stream xmlns='jabber:client' id='c2s_123' from='example.com'>`)
	if !ok || id != "c2s_123" {
		t.Fatalf("got id=%q ok=%v", id, ok)
	}
}

func TestParseStreamOpenMissingIDFails(t *testing.T) {
	_, ok := parseStreamOpen(`<stream:stream xmlns='jabber:client'>`)
	if ok {
		t.Fatal("expected no match without an id attribute")
	}
}

func TestParseFeaturesCollectsMechanisms(t *testing.T) {
	f := parseFeatures(`<stream:features><mechanisms><mechanism>PLAIN</mechanism><mechanism>SCRAM-SHA-1</mechanism></mechanisms></stream:features>`)
	if len(f.Mechanisms) != 2 || f.Mechanisms[0] != "PLAIN" || f.Mechanisms[1] != "SCRAM-SHA-1" {
		t.Fatalf("got %v", f.Mechanisms)
	}
}

func TestParseFeaturesStartTLSNotRequired(t *testing.T) {
	f := parseFeatures(`<stream:features><starttls xmlns='urn:ietf:params:xml:ns:xmpp-tls'/></stream:features>`)
	if !f.StartTLS {
		t.Fatal("expected starttls advertised")
	}
	if f.StartTLSRequire {
		t.Fatal("expected starttls not required")
	}
}

func TestHasProceedFailureSuccess(t *testing.T) {
	if !hasProceed(`<proceed xmlns='urn:ietf:params:xml:ns:xmpp-tls'/>`) {
		t.Fatal("expected proceed match")
	}
	if !hasFailure(`<failure xmlns='urn:ietf:params:xml:ns:xmpp-sasl'><not-authorized/></failure>`) {
		t.Fatal("expected failure match")
	}
	if !hasSuccess(`<success xmlns='urn:ietf:params:xml:ns:xmpp-sasl'/>`) {
		t.Fatal("expected success match")
	}
}

func TestParseBoundJID(t *testing.T) {
	jid, ok := parseBoundJID(`<iq type='result' id='bind_1'><bind xmlns='urn:ietf:params:xml:ns:xmpp-bind'><jid>user@example.com/res1</jid></bind></iq>`)
	if !ok || jid != "user@example.com/res1" {
		t.Fatalf("got jid=%q ok=%v", jid, ok)
	}
}

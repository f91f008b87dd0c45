package observer

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	s, err := jsonschema.Compile(filepath.Join("schemas", name))
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

func validateJSON(t *testing.T, s *jsonschema.Schema, raw []byte) {
	t.Helper()
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	if err := s.Validate(v); err != nil {
		t.Fatalf("validate %s: %v", raw, err)
	}
}

func TestSchemasValidateStream(t *testing.T) {
	welcome := compileSchema(t, "welcome.schema.json")
	chunk := compileSchema(t, "chunk.schema.json")

	for _, mesh := range []bool{false, true} {
		_, _, srv := newTestHub(t)
		conn := dial(t, srv, SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: ProtocolVersion, Mesh: mesh})

		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read welcome: %v", err)
		}
		validateJSON(t, welcome, raw)

		_, raw, err = conn.ReadMessage()
		if err != nil {
			t.Fatalf("read chunk: %v", err)
		}
		validateJSON(t, chunk, raw)
	}
}

func TestSchemasValidateBootstrap(t *testing.T) {
	bootstrap := compileSchema(t, "bootstrap.schema.json")
	_, _, srv := newTestHub(t)

	resp, err := http.Get(srv.URL + "/bootstrap")
	if err != nil {
		t.Fatalf("get bootstrap: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read bootstrap: %v", err)
	}
	validateJSON(t, bootstrap, raw)
}

package controller

import (
	"errors"
	"testing"
)

func TestDecodeMessage(t *testing.T) {
	tests := []struct {
		in   string
		want Command
	}{
		{`{"command":"set_effect","effect":"fire"}`, Command{Op: OpSetEffect, Effect: "fire", ExitPlaylist: true}},
		{`{"command":"set_effect","effect":"fire","exit_playlist":false}`, Command{Op: OpSetEffect, Effect: "fire"}},
		{`{"command":"select_index","index":0}`, Command{Op: OpSelectIndex}},
		{`{"command":"resume_playlist"}`, Command{Op: OpResumePlaylist}},
		{`{"command":"remove_from_playlist","effect":"off"}`, Command{Op: OpRemoveFromPlaylist, Effect: "off", ExitPlaylist: true}},
	}
	for _, tc := range tests {
		_, got, err := DecodeMessage([]byte(tc.in))
		if err != nil {
			t.Fatalf("DecodeMessage(%s): %v", tc.in, err)
		}
		if got.Op != tc.want.Op || got.Effect != tc.want.Effect || got.ExitPlaylist != tc.want.ExitPlaylist || got.Index != tc.want.Index {
			t.Fatalf("DecodeMessage(%s) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestDecodeMessageUpdateConfig(t *testing.T) {
	_, cmd, err := DecodeMessage([]byte(`{"command":"update_config","config":{"runtime.rotation_period":5}}`))
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if cmd.Op != OpUpdateConfig || cmd.Patch["runtime.rotation_period"] != float64(5) {
		t.Fatalf("cmd = %+v", cmd)
	}
}

func TestDecodeMessageRejects(t *testing.T) {
	for _, in := range []string{
		`not json`,
		`{"command":"explode"}`,
		`{"command":"set_effect"}`,
		`{"command":"select_index"}`,
		`{"command":"update_config"}`,
	} {
		if _, _, err := DecodeMessage([]byte(in)); err == nil {
			t.Fatalf("DecodeMessage(%s) succeeded", in)
		}
	}
}

func TestRespond(t *testing.T) {
	m := Message{Command: "get_config", RequestID: "42"}
	r := Respond(m, Result{Status: Status{CurrentEffect: "fire"}}, nil)
	if r.Status != "success" || r.Data.CurrentEffect != "fire" || r.Config == nil || r.RequestID != "42" {
		t.Fatalf("response = %+v", r)
	}
	r = Respond(Message{}, Result{}, errors.New("boom"))
	if r.Status != "error" || r.Error != "boom" || r.CommandAck != "unknown" || r.Data != nil {
		t.Fatalf("response = %+v", r)
	}
}

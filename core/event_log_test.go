package core

import "testing"

func userFunctionResponseEvent(callID, name string) Event {
	e := NewEvent("inv", UserAuthor)
	e.Content = &Content{
		Role: "user",
		Parts: []Part{
			FunctionResponsePart{FunctionResponse: FunctionResponse{ID: callID, Name: name, Response: "ok"}},
		},
	}
	return e
}

func agentFunctionCallEvent(author, callID, name string) Event {
	e := NewEvent("inv", author)
	e.Content = &Content{
		Role: "assistant",
		Parts: []Part{
			FunctionCallPart{FunctionCall: FunctionCall{ID: callID, Name: name}},
		},
	}
	return e
}

func TestLatestNonUserAuthor(t *testing.T) {
	events := []Event{
		NewUserMessageEvent("inv", "hi"),
		NewMessageEvent("agent_a", "hello"),
		NewUserMessageEvent("inv", "more"),
	}
	if got := LatestNonUserAuthor(events); got != "agent_a" {
		t.Fatalf("expected agent_a, got %q", got)
	}

	if got := LatestNonUserAuthor([]Event{NewUserMessageEvent("inv", "hi")}); got != "" {
		t.Fatalf("expected empty author, got %q", got)
	}

	if got := LatestNonUserAuthor(nil); got != "" {
		t.Fatalf("expected empty author for empty log, got %q", got)
	}
}

func TestFindMatchingFunctionCall(t *testing.T) {
	events := []Event{
		NewUserMessageEvent("inv", "book a flight"),
		agentFunctionCallEvent("agent_a", "call-7", "reserve_seat"),
		userFunctionResponseEvent("call-7", "reserve_seat"),
	}

	match := FindMatchingFunctionCall(events)
	if match == nil || match.Author != "agent_a" {
		t.Fatalf("expected call event from agent_a, got %+v", match)
	}
}

func TestFindMatchingFunctionCall_FreshTurn(t *testing.T) {
	events := []Event{
		NewUserMessageEvent("inv", "hello"),
		NewMessageEvent("agent_a", "hi there"),
	}
	if match := FindMatchingFunctionCall(events); match != nil {
		t.Fatalf("expected nil for fresh turn, got %+v", match)
	}

	// A user text message is not a function response.
	events = append(events, NewUserMessageEvent("inv", "thanks"))
	if match := FindMatchingFunctionCall(events); match != nil {
		t.Fatalf("expected nil for plain user message, got %+v", match)
	}

	if match := FindMatchingFunctionCall(nil); match != nil {
		t.Fatalf("expected nil for empty log, got %+v", match)
	}
}

func TestFindMatchingFunctionCall_SkipsUnrelatedCalls(t *testing.T) {
	events := []Event{
		agentFunctionCallEvent("agent_a", "call-1", "lookup"),
		userFunctionResponseEvent("call-1", "lookup"),
		agentFunctionCallEvent("agent_b", "call-2", "reserve"),
		userFunctionResponseEvent("call-2", "reserve"),
	}

	match := FindMatchingFunctionCall(events)
	if match == nil || match.Author != "agent_b" {
		t.Fatalf("expected most recent pairing to win, got %+v", match)
	}
}

func TestIsTransferable(t *testing.T) {
	if IsTransferable(nil) {
		t.Fatal("nil agent should not be transferable")
	}
}

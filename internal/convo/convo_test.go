package convo

import (
	"testing"
)

const sampleChat = `**User**: hi

---

**Claude**: hello

> [!note] Context
> some supporting
> detail here

---

**User**: thanks
`

func TestDetect_SpecScenario(t *testing.T) {
	body := "**User**: hi\n\n---\n\n**Claude**: hello\n"
	meta := Detect(body, map[string]any{"tags": []any{"conversation"}})
	if !meta.IsConversation {
		t.Error("expected conversation")
	}
	if meta.Source != "Claude" {
		t.Errorf("source = %q, want Claude", meta.Source)
	}
	if meta.MessageCount != 2 {
		t.Errorf("messageCount = %d, want 2", meta.MessageCount)
	}
}

func TestDetect_SourceFieldSignal(t *testing.T) {
	meta := Detect("plain text, no structure", map[string]any{"source": "chatgpt"})
	if !meta.IsConversation {
		t.Error("known source field should classify as conversation")
	}
	if meta.Source != "ChatGPT" {
		t.Errorf("source = %q, want canonical ChatGPT", meta.Source)
	}
}

func TestDetect_UnknownSourceIgnored(t *testing.T) {
	meta := Detect("plain text", map[string]any{"source": "my-blog"})
	if meta.IsConversation {
		t.Error("unknown source should not classify as conversation")
	}
	if meta.Source != "" {
		t.Errorf("source = %q, want empty", meta.Source)
	}
}

func TestDetect_TagSignals(t *testing.T) {
	meta := Detect("inline #research note", nil)
	if !meta.IsConversation {
		t.Error("research tag should classify as conversation")
	}

	meta = Detect("", map[string]any{"tags": []any{"gemini"}})
	if !meta.IsConversation || meta.Source != "Gemini" {
		t.Errorf("source tag signal failed: %+v", meta)
	}
}

func TestDetect_StructureRequiresUserAndAnother(t *testing.T) {
	// Two markers but no User speaker: not a conversation.
	body := "**Claude**: a\n\n---\n\n**Claude**: b\n"
	if meta := Detect(body, nil); meta.IsConversation {
		t.Error("no User speaker, should not classify")
	}

	// Only one marker: not a conversation.
	body = "**User**: alone\n"
	if meta := Detect(body, nil); meta.IsConversation {
		t.Error("single marker, should not classify")
	}

	body = "**User**: q\n\n---\n\n**Grok**: a\n"
	meta := Detect(body, nil)
	if !meta.IsConversation {
		t.Error("User plus distinct speaker should classify")
	}
	if meta.UserMessages != 1 || meta.AssistantMessages != 1 {
		t.Errorf("counts = %d/%d, want 1/1", meta.UserMessages, meta.AssistantMessages)
	}
}

func TestDetect_CalloutsIndependent(t *testing.T) {
	body := "just a note\n\n> [!tip] Hint\n> indented wisdom\n"
	meta := Detect(body, nil)
	if meta.IsConversation {
		t.Error("callout alone should not classify as conversation")
	}
	if !meta.HasCallouts {
		t.Error("callout not detected")
	}
	if len(meta.CalloutTypes) != 1 || meta.CalloutTypes[0] != "TIP" {
		t.Errorf("calloutTypes = %v, want [TIP]", meta.CalloutTypes)
	}
}

func TestParseMessages_DropsPreambleAndUnmarked(t *testing.T) {
	body := "Some preamble notes.\n\n---\n\n**User**: question\n\n---\n\nA stray segment.\n\n---\n\n**Claude**: answer\n"
	msgs := ParseMessages(body)
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[0].Speaker != "User" {
		t.Errorf("first = %+v", msgs[0])
	}
	if msgs[1].Role != "assistant" || msgs[1].Speaker != "Claude" {
		t.Errorf("second = %+v", msgs[1])
	}
}

func TestParseMessages_RoleIsCaseSensitive(t *testing.T) {
	body := "**user**: lowercase\n\n---\n\n**User**: exact\n"
	msgs := ParseMessages(body)
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	// Only the exact speaker "User" is a user; "user" counts as assistant.
	if msgs[0].Role != "assistant" {
		t.Errorf("lowercase speaker role = %q, want assistant", msgs[0].Role)
	}
	if msgs[1].Role != "user" {
		t.Errorf("exact speaker role = %q, want user", msgs[1].Role)
	}
}

func TestParseMessages_ExtractsCallouts(t *testing.T) {
	msgs := ParseMessages(sampleChat)
	if len(msgs) != 3 {
		t.Fatalf("messages = %d, want 3", len(msgs))
	}
	cl := msgs[1].Callouts
	if len(cl) != 1 {
		t.Fatalf("callouts = %v, want 1", cl)
	}
	if cl[0].Type != "NOTE" || cl[0].Title != "Context" {
		t.Errorf("callout = %+v", cl[0])
	}
	if cl[0].Content != "some supporting\ndetail here" {
		t.Errorf("content = %q", cl[0].Content)
	}
}

func TestDetect_SpeakersDeduplicated(t *testing.T) {
	body := "**User**: a\n\n---\n\n**Claude**: b\n\n---\n\n**User**: c\n"
	meta := Detect(body, nil)
	if len(meta.Speakers) != 2 {
		t.Errorf("speakers = %v, want [User Claude]", meta.Speakers)
	}
	if meta.MessageCount != 3 || meta.UserMessages != 2 || meta.AssistantMessages != 1 {
		t.Errorf("counts = %+v", meta)
	}
}

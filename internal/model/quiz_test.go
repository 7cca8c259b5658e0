package model

import (
	"encoding/json"
	"testing"
)

func TestAnswerAcceptsStringOrArray(t *testing.T) {
	var q QuizQuestion
	if err := json.Unmarshal([]byte(`{"correctAnswer":"Topic A"}`), &q); err != nil {
		t.Fatalf("unmarshal string answer: %v", err)
	}
	if len(q.CorrectAnswer) != 1 || q.CorrectAnswer[0] != "Topic A" {
		t.Fatalf("answer = %v", q.CorrectAnswer)
	}

	if err := json.Unmarshal([]byte(`{"correctAnswer":["a","b"]}`), &q); err != nil {
		t.Fatalf("unmarshal array answer: %v", err)
	}
	if len(q.CorrectAnswer) != 2 {
		t.Fatalf("answer = %v", q.CorrectAnswer)
	}

	if err := json.Unmarshal([]byte(`{"correctAnswer":42}`), &q); err == nil {
		t.Fatal("numeric answer should be rejected")
	}
}

func TestAnswerMarshalKeepsSingleAsString(t *testing.T) {
	data, err := json.Marshal(Answer{"only"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"only"` {
		t.Fatalf("got %s", data)
	}
	data, _ = json.Marshal(Answer{"a", "b"})
	if string(data) != `["a","b"]` {
		t.Fatalf("got %s", data)
	}
}

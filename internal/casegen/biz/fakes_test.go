package biz

import (
	"context"
	"sync"

	"github.com/kart-io/casegen/pkg/llm"
)

// fakeChat 按顺序返回预设响应并记录调用次数。
type fakeChat struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
	messages  [][]llm.Message
}

func (f *fakeChat) Chat(_ context.Context, messages []llm.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.calls
	f.calls++
	f.messages = append(f.messages, messages)

	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if len(f.responses) == 0 {
		return "", nil
	}
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i], nil
}

func (f *fakeChat) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	return f.Chat(ctx, llm.BuildMessages(prompt, systemPrompt))
}

func (f *fakeChat) Name() string { return "fake" }

func (f *fakeChat) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

const successJSON = `{
  "status": "success",
  "assumptions": [],
  "missing_information": [],
  "use_cases": [
    {
      "use_case_title": "Reject short password",
      "goal": "Verify the minimum password length",
      "preconditions": ["User is on the login page"],
      "test_data": {"password": "abc"},
      "steps": ["Enter username", "Enter a 3 character password", "Submit"],
      "expected_results": ["Error Password too short is shown"],
      "negative_cases": ["Empty password"],
      "boundary_cases": ["Password of exactly 8 characters"]
    }
  ]
}`

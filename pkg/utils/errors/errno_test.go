package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"slices"
	"testing"

	"google.golang.org/grpc/codes"
)

func TestMakeCode(t *testing.T) {
	tests := []struct {
		service  int
		category int
		sequence int
		expected int
	}{
		{0, 0, 0, 0},
		{0, 1, 1, 1001},
		{21, 1, 2, 2101002},
		{21, 10, 1, 2110001},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%d_%d", tt.service, tt.category, tt.sequence), func(t *testing.T) {
			got := MakeCode(tt.service, tt.category, tt.sequence)
			if got != tt.expected {
				t.Errorf("MakeCode(%d, %d, %d) = %d, want %d",
					tt.service, tt.category, tt.sequence, got, tt.expected)
			}
			s, c, q := ParseCode(got)
			if s != tt.service || c != tt.category || q != tt.sequence {
				t.Errorf("ParseCode(%d) = (%d, %d, %d)", got, s, c, q)
			}
		})
	}
}

func TestErrnoWrapping(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := ErrTransport.WithCause(cause)

	if !stderrors.Is(err, ErrTransport) {
		t.Fatal("wrapped errno should match its template")
	}
	if stderrors.Is(err, ErrGenerationParse) {
		t.Fatal("wrapped errno must not match a different code")
	}
	if !stderrors.Is(err, cause) {
		t.Fatal("cause should be reachable through Unwrap")
	}
	if err.HTTPStatus() != http.StatusBadGateway {
		t.Errorf("HTTPStatus() = %d, want %d", err.HTTPStatus(), http.StatusBadGateway)
	}
	if err.GRPCStatus() != codes.Unavailable {
		t.Errorf("GRPCStatus() = %v", err.GRPCStatus())
	}

	outer := fmt.Errorf("generate: %w", err)
	if GetCode(outer) != ErrTransport.Code {
		t.Errorf("GetCode() = %d, want %d", GetCode(outer), ErrTransport.Code)
	}
	if !IsCode(outer, ErrTransport.Code) {
		t.Error("IsCode should see through fmt wrapping")
	}
}

func TestWithMessageKeepsTemplate(t *testing.T) {
	e := ErrInvalidParam.WithMessage("query is required")
	if e.MessageEN != "query is required" {
		t.Errorf("MessageEN = %q", e.MessageEN)
	}
	if ErrInvalidParam.MessageEN != "Invalid parameter" {
		t.Error("WithMessage must not mutate the registered errno")
	}
	if e.Message("zh") != ErrInvalidParam.MessageZH {
		t.Errorf("Message(zh) = %q", e.Message("zh"))
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil) != nil {
		t.Fatal("FromError(nil) should be nil")
	}
	plain := stderrors.New("boom")
	got := FromError(plain)
	if got.Code != ErrInternal.Code {
		t.Errorf("FromError(plain).Code = %d, want %d", got.Code, ErrInternal.Code)
	}
	if GetCode(plain) != -1 {
		t.Error("GetCode on a plain error should be -1")
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("registering a duplicate code should panic")
		}
	}()
	Register(New(ErrEmptyInput.Code, 400, codes.InvalidArgument, "dup", "dup"))
}

func TestCategoryHelpers(t *testing.T) {
	if !IsClientError(ErrEmptyInput.Code) {
		t.Error("empty input should be a client error")
	}
	if !IsServerError(ErrTransport.Code) {
		t.Error("transport should be a server error")
	}
}

func TestRegisterRejectsSuccessCategory(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("registering a success-category code should panic")
		}
	}()
	Register(New(MakeCode(ServiceCaseGen, CategorySuccess, 999), 200, codes.OK, "ok", "ok"))
}

func TestCaseGenCodesRegistered(t *testing.T) {
	got := Codes(ServiceCaseGen)
	for _, e := range []*Errno{ErrCaseGenInvalidRequest, ErrEmptyInput, ErrNoChunks, ErrInsufficientEvidence, ErrTransport} {
		if _, ok := Lookup(e.Code); !ok {
			t.Errorf("code %d not registered", e.Code)
		}
		if !slices.Contains(got, e.Code) {
			t.Errorf("Codes(ServiceCaseGen) missing %d", e.Code)
		}
	}
	if !slices.IsSorted(got) {
		t.Errorf("Codes(ServiceCaseGen) not sorted: %v", got)
	}
	if _, ok := Lookup(MakeCode(ServiceCaseGen, CategoryRequest, 999)); ok {
		t.Error("unexpected registration")
	}
}

package biz

import (
	"fmt"
	"slices"

	"github.com/kart-io/casegen/internal/casegen/model"
	"github.com/kart-io/casegen/pkg/utils/json"
	"github.com/kart-io/casegen/pkg/utils/validator"
)

// useCaseChecks 用例必填字段及其失败信息，按检查顺序排列。
var useCaseChecks = []struct {
	field   string
	message string
}{
	{"use_case_title", "Missing use_case_title"},
	{"steps", "Missing steps"},
	{"expected_results", "Missing expected_results"},
}

// Evaluator 对生成结果做结构性检查，只报告问题，不修改也不拦截结果。
type Evaluator struct {
	validator *validator.Validator
}

// NewEvaluator 创建评估器。
func NewEvaluator(v *validator.Validator) *Evaluator {
	if v == nil {
		v = validator.New()
	}
	return &Evaluator{validator: v}
}

// Evaluate 检查 JSON 结构的生成结果。
func (e *Evaluator) Evaluate(payload map[string]any) *model.EvaluationReport {
	failures := []string{}

	if _, ok := payload["status"]; !ok {
		failures = append(failures, "Missing status field")
	}

	raw, ok := payload["use_cases"]
	switch {
	case !ok:
		failures = append(failures, "Missing use_cases field")
	default:
		list, isList := raw.([]any)
		if !isList {
			failures = append(failures, "use_cases must be a list")
			break
		}
		for i, item := range list {
			for _, msg := range e.checkUseCase(item) {
				failures = append(failures, fmt.Sprintf("use_cases[%d]: %s", i, msg))
			}
		}
	}

	return &model.EvaluationReport{Passed: len(failures) == 0, Failures: failures}
}

// EvaluateResult 将结构化结果转换为 JSON 结构后检查。
func (e *Evaluator) EvaluateResult(result *model.GenerationResult) (*model.EvaluationReport, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return e.Evaluate(payload), nil
}

// checkUseCase 优先使用 UseCase 上的校验标签；字段类型不符时退回按值判断。
func (e *Evaluator) checkUseCase(item any) []string {
	fields, ok := e.validateTyped(item)
	if !ok {
		fields = missingFields(item)
	}

	var out []string
	for _, c := range useCaseChecks {
		if slices.Contains(fields, c.field) {
			out = append(out, c.message)
		}
	}
	return out
}

func (e *Evaluator) validateTyped(item any) ([]string, bool) {
	if _, isMap := item.(map[string]any); !isMap {
		return nil, false
	}
	data, err := json.Marshal(item)
	if err != nil {
		return nil, false
	}
	var uc model.UseCase
	if err := json.Unmarshal(data, &uc); err != nil {
		return nil, false
	}
	return e.validator.ValidateWithLang(&uc, validator.LangEN).Fields(), true
}

func missingFields(item any) []string {
	m, _ := item.(map[string]any)
	var fields []string
	for _, c := range useCaseChecks {
		if !truthy(m[c.field]) {
			fields = append(fields, c.field)
		}
	}
	return fields
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

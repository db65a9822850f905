package biz

import (
	"fmt"

	"github.com/kart-io/casegen/internal/casegen/model"
	"github.com/kart-io/casegen/pkg/utils/errors"
)

// EvidenceScore 返回检索得分的均值，空序列为 0。
func EvidenceScore(chunks []model.RetrievedChunk) float64 {
	if len(chunks) == 0 {
		return 0
	}
	var sum float64
	for _, c := range chunks {
		sum += c.Score
	}
	return sum / float64(len(chunks))
}

// EvidenceGate 证据门限。
type EvidenceGate struct {
	minScore float64
}

// NewEvidenceGate 创建证据门限。
func NewEvidenceGate(minScore float64) *EvidenceGate {
	return &EvidenceGate{minScore: minScore}
}

// MinScore 返回门限值。
func (g *EvidenceGate) MinScore() float64 {
	return g.minScore
}

// Check 计算证据得分，得分低于门限时返回 ErrInsufficientEvidence（等于门限视为通过）。
func (g *EvidenceGate) Check(chunks []model.RetrievedChunk) (float64, error) {
	score := EvidenceScore(chunks)
	if score >= g.minScore {
		return score, nil
	}
	return score, errors.ErrInsufficientEvidence.WithCause(&EvidenceShortfall{Score: score, Threshold: g.minScore})
}

// EvidenceShortfall 记录被拒绝时的得分与门限。
type EvidenceShortfall struct {
	Score     float64
	Threshold float64
}

func (e *EvidenceShortfall) Error() string {
	return fmt.Sprintf("evidence score %.4f below threshold %.4f", e.Score, e.Threshold)
}

package subject

import (
	"context"

	"github.com/trezcool/darasa/core/section"
)

// commitmentSource adapts the subject repository to the registry's
// section.SubjectSource contract, so section writes see attached subjects'
// schedules when checking instructor and room conflicts.
type commitmentSource struct {
	repo Repository
}

var _ section.SubjectSource = commitmentSource{}

func NewCommitmentSource(repo Repository) section.SubjectSource {
	return commitmentSource{repo: repo}
}

func (s commitmentSource) FilterCommitmentsBySection(ctx context.Context, sectionID string) ([]section.Commitment, error) {
	subs, err := s.repo.FilterSubjectsBySection(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	cms := make([]section.Commitment, 0, len(subs))
	for i := range subs {
		cms = append(cms, subs[i].Commitment())
	}
	return cms, nil
}

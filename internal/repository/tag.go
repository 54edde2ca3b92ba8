package repository

import (
	"context"

	"github.com/patentx-lab/backend/internal/entity"
	"github.com/patentx-lab/backend/pkg/xcontext"
)

type TagRepository interface {
	Create(ctx context.Context, tag *entity.Tag) error
	GetByIDs(ctx context.Context, ids []string) ([]entity.Tag, error)
	GetByNames(ctx context.Context, names []string) ([]entity.Tag, error)
}

type tagRepository struct{}

func NewTagRepository() *tagRepository {
	return &tagRepository{}
}

func (r *tagRepository) Create(ctx context.Context, tag *entity.Tag) error {
	return xcontext.DB(ctx).Create(tag).Error
}

func (r *tagRepository) GetByIDs(ctx context.Context, ids []string) ([]entity.Tag, error) {
	var result []entity.Tag
	if err := xcontext.DB(ctx).Find(&result, "id IN ?", ids).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *tagRepository) GetByNames(ctx context.Context, names []string) ([]entity.Tag, error) {
	var result []entity.Tag
	if err := xcontext.DB(ctx).Find(&result, "name IN ?", names).Error; err != nil {
		return nil, err
	}

	return result, nil
}

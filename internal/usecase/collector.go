package usecase

import (
	"context"
	"errors"
	"fmt"

	"Weaver/internal/domain"
	"Weaver/internal/ports"
)

// DefaultMembersPerCategory limits how many members are inspected per category.
const DefaultMembersPerCategory = 20

// Collector gathers a capped, deduplicated article list from a knowledge source.
type Collector struct {
	source             ports.KnowledgeSource
	observer           ports.ProgressObserver
	membersPerCategory int
}

// NewCollector wires the knowledge source; membersPerCategory <= 0 falls back to the default.
func NewCollector(source ports.KnowledgeSource, observer ports.ProgressObserver, membersPerCategory int) *Collector {
	if membersPerCategory <= 0 {
		membersPerCategory = DefaultMembersPerCategory
	}
	return &Collector{
		source:             source,
		observer:           observer,
		membersPerCategory: membersPerCategory,
	}
}

// Collect scans categories in order and stops as soon as maxArticles articles are accepted.
func (c *Collector) Collect(ctx context.Context, categories []string, maxArticles int) ([]domain.CollectedArticle, error) {
	if c.source == nil {
		return nil, fmt.Errorf("knowledge source is not configured")
	}

	articles := make([]domain.CollectedArticle, 0)
	seenTitles := map[string]struct{}{}
	seenIDs := map[string]struct{}{}

	for _, category := range categories {
		if len(articles) >= maxArticles {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		c.notify(domain.ProgressEvent{Stage: domain.StageCollect, Kind: domain.EventCategoryScan, Category: category})

		members, err := c.source.CategoryMembers(ctx, category, c.membersPerCategory)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			kind := domain.EventCategoryFailed
			if errors.Is(err, domain.ErrCategoryNotFound) {
				kind = domain.EventCategoryMissing
			}
			c.notify(domain.ProgressEvent{Stage: domain.StageCollect, Kind: kind, Category: category, Err: err})
			continue
		}

		if len(members) > c.membersPerCategory {
			members = members[:c.membersPerCategory]
		}

		for _, member := range members {
			if len(articles) >= maxArticles {
				break
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if !member.IsArticle() {
				continue
			}
			if _, ok := seenTitles[member.Title]; ok {
				continue
			}
			if _, ok := seenIDs[domain.ArticleID(member.Title)]; ok {
				continue
			}

			details, err := c.source.PageDetails(ctx, member.Title)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				c.notify(domain.ProgressEvent{Stage: domain.StageCollect, Kind: domain.EventPageFailed, Category: category, Title: member.Title, Err: err})
				continue
			}
			details.Title = member.Title
			article := domain.NewCollectedArticle(details)

			articles = append(articles, article)
			seenTitles[article.Title] = struct{}{}
			seenIDs[article.ID] = struct{}{}
			c.notify(domain.ProgressEvent{Stage: domain.StageCollect, Kind: domain.EventPageFetched, Category: category, Title: article.Title})
		}
	}

	c.notify(domain.ProgressEvent{Stage: domain.StageCollect, Kind: domain.EventCollected, Count: len(articles)})
	return articles, nil
}

func (c *Collector) notify(event domain.ProgressEvent) {
	if c.observer != nil {
		c.observer.Notify(event)
	}
}

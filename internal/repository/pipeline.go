package repository

import (
	"fmt"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// StageKind orders pipeline stages. Stages must be added in non-decreasing kind
// order: filter before lookup before sort before paginate.
type StageKind int

const (
	StageMatch StageKind = iota + 1
	StageLookup
	StageSort
	StagePaginate
)

func (k StageKind) String() string {
	switch k {
	case StageMatch:
		return "match"
	case StageLookup:
		return "lookup"
	case StageSort:
		return "sort"
	case StagePaginate:
		return "paginate"
	default:
		return fmt.Sprintf("stage(%d)", int(k))
	}
}

// Stage is a named query step.
type Stage struct {
	Name  string
	Kind  StageKind
	apply func(*gorm.DB) *gorm.DB
}

// Pipeline composes a read query from an ordered list of named stages.
// The first ordering violation is kept and reported by Err.
type Pipeline struct {
	stages []Stage
	page   int
	limit  int
	err    error
}

func NewPipeline() *Pipeline {
	return &Pipeline{}
}

func (p *Pipeline) add(s Stage) *Pipeline {
	if p.err != nil {
		return p
	}
	if n := len(p.stages); n > 0 {
		last := p.stages[n-1]
		if last.Kind > s.Kind {
			p.err = errors.Errorf("pipeline: %s stage %q cannot follow %s stage %q", s.Kind, s.Name, last.Kind, last.Name)
			return p
		}
		if last.Kind == StagePaginate && s.Kind == StagePaginate {
			p.err = errors.Errorf("pipeline: duplicate paginate stage %q", s.Name)
			return p
		}
	}
	p.stages = append(p.stages, s)
	return p
}

// Match filters documents.
func (p *Pipeline) Match(name string, query interface{}, args ...interface{}) *Pipeline {
	return p.add(Stage{Name: name, Kind: StageMatch, apply: func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	}})
}

// Lookup joins an association, optionally restricted to the given columns.
func (p *Pipeline) Lookup(name, association string, columns ...string) *Pipeline {
	return p.add(Stage{Name: name, Kind: StageLookup, apply: func(db *gorm.DB) *gorm.DB {
		if len(columns) == 0 {
			return db.Preload(association)
		}
		return db.Preload(association, func(tx *gorm.DB) *gorm.DB {
			return tx.Select(columns)
		})
	}})
}

// Sort orders documents, e.g. "created_at DESC".
func (p *Pipeline) Sort(name, order string) *Pipeline {
	return p.add(Stage{Name: name, Kind: StageSort, apply: func(db *gorm.DB) *gorm.DB {
		return db.Order(order)
	}})
}

// Paginate slices the result to one page. page is 1-based.
func (p *Pipeline) Paginate(page, limit int) *Pipeline {
	if page < 1 || limit < 1 {
		if p.err == nil {
			p.err = errors.Errorf("pipeline: invalid pagination page=%d limit=%d", page, limit)
		}
		return p
	}
	p.page, p.limit = page, limit
	return p.add(Stage{Name: "paginate", Kind: StagePaginate, apply: func(db *gorm.DB) *gorm.DB {
		return db.Offset((page - 1) * limit).Limit(limit)
	}})
}

// Err returns the first composition error.
func (p *Pipeline) Err() error {
	return p.err
}

// Names lists stage names in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name
	}
	return names
}

// Pagination returns the page and limit of the paginate stage.
func (p *Pipeline) Pagination() (page, limit int, ok bool) {
	return p.page, p.limit, p.limit > 0
}

// Scopes returns every stage as a gorm scope.
func (p *Pipeline) Scopes() []func(*gorm.DB) *gorm.DB {
	scopes := make([]func(*gorm.DB) *gorm.DB, 0, len(p.stages))
	for _, s := range p.stages {
		scopes = append(scopes, s.apply)
	}
	return scopes
}

// CountScopes returns only the match stages, so totals reflect the filtered set
// before any slicing.
func (p *Pipeline) CountScopes() []func(*gorm.DB) *gorm.DB {
	var scopes []func(*gorm.DB) *gorm.DB
	for _, s := range p.stages {
		if s.Kind == StageMatch {
			scopes = append(scopes, s.apply)
		}
	}
	return scopes
}

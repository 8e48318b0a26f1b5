package documents

import (
	"sort"
	"strings"
)

// TableFilter mirrors the document table controls. Status "" or "all" shows
// every status.
type TableFilter struct {
	Search string `json:"search"`
	Status string `json:"status"`
}

// SortField names a sortable document column.
type SortField string

const (
	SortUploadDate SortField = "uploadDate"
	SortFileName   SortField = "fileName"
	SortCompany    SortField = "companyName"
	SortFileSize   SortField = "fileSize"
	SortStatus     SortField = "status"
)

// TableSort defaults to newest upload first.
type TableSort struct {
	Field SortField `json:"field"`
	Desc  bool      `json:"desc"`
}

var DefaultTableSort = TableSort{Field: SortUploadDate, Desc: true}

// Toggle flips direction on the same field and starts a new field ascending.
func (s TableSort) Toggle(f SortField) TableSort {
	if s.Field == f {
		return TableSort{Field: f, Desc: !s.Desc}
	}
	return TableSort{Field: f}
}

func companyName(d *Document) string {
	if d.Company == nil {
		return ""
	}
	return d.Company.Name
}

func (f TableFilter) match(d *Document) bool {
	if f.Status != "" && f.Status != "all" && string(d.Status) != f.Status {
		return false
	}
	if f.Search == "" {
		return true
	}
	q := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(d.OriginalFilename), q) ||
		strings.Contains(strings.ToLower(companyName(d)), q)
}

func (s TableSort) cmp(a, b *Document) int {
	switch s.Field {
	case SortFileName:
		return strings.Compare(a.OriginalFilename, b.OriginalFilename)
	case SortCompany:
		return strings.Compare(companyName(a), companyName(b))
	case SortFileSize:
		switch {
		case a.FileSize < b.FileSize:
			return -1
		case a.FileSize > b.FileSize:
			return 1
		}
		return 0
	case SortStatus:
		return strings.Compare(string(a.Status), string(b.Status))
	}
	return a.CreatedAt.Compare(b.CreatedAt)
}

// ApplyTable returns the filtered, sorted view of docs without touching docs.
func ApplyTable(docs []*Document, f TableFilter, s TableSort) []*Document {
	out := make([]*Document, 0, len(docs))
	for _, d := range docs {
		if f.match(d) {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := s.cmp(out[i], out[j])
		if s.Desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

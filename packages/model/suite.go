package model

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ItemType tags which kind of entity a SuiteItem references.
type ItemType string

const (
	ItemCase   ItemType = "test_case"
	ItemModule ItemType = "test_module"
	ItemSuite  ItemType = "test_suite"
)

// ParseItemType accepts the stored names as well as the short aliases
// "case", "module" and "suite".
func ParseItemType(s string) (ItemType, error) {
	switch s {
	case "test_case", "case":
		return ItemCase, nil
	case "test_module", "module":
		return ItemModule, nil
	case "test_suite", "suite":
		return ItemSuite, nil
	default:
		return "", fmt.Errorf("unknown suite item type: %q", s)
	}
}

var (
	ErrItemTarget   = errors.New("suite item must reference exactly one target")
	ErrItemMismatch = errors.New("suite item target does not match its type")
)

// TestSuite is an ordered composition of cases, modules and nested suites.
// ParentID is a loose grouping and has no effect on execution.
type TestSuite struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	ParentID    *int64      `json:"parent_id,omitempty"`
	Items       []SuiteItem `json:"items"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// SuiteItem is one ordered slot of a suite.
type SuiteItem struct {
	ID           int64    `json:"id"`
	SuiteID      int64    `json:"suite_id"`
	Type         ItemType `json:"item_type"`
	TestCaseID   *int64   `json:"test_case_id,omitempty"`
	ModuleID     *int64   `json:"module_id,omitempty"`
	ChildSuiteID *int64   `json:"child_suite_id,omitempty"`
	SortOrder    int      `json:"sort_order"`
}

func NewCaseItem(caseID int64, sortOrder int) SuiteItem {
	return SuiteItem{Type: ItemCase, TestCaseID: &caseID, SortOrder: sortOrder}
}

func NewModuleItem(moduleID int64, sortOrder int) SuiteItem {
	return SuiteItem{Type: ItemModule, ModuleID: &moduleID, SortOrder: sortOrder}
}

func NewSuiteItem(childSuiteID int64, sortOrder int) SuiteItem {
	return SuiteItem{Type: ItemSuite, ChildSuiteID: &childSuiteID, SortOrder: sortOrder}
}

// Validate checks that exactly one target id is set and that it matches Type.
func (it SuiteItem) Validate() error {
	set := 0
	for _, p := range []*int64{it.TestCaseID, it.ModuleID, it.ChildSuiteID} {
		if p != nil {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w (type %s, %d set)", ErrItemTarget, it.Type, set)
	}

	var ok bool
	switch it.Type {
	case ItemCase:
		ok = it.TestCaseID != nil
	case ItemModule:
		ok = it.ModuleID != nil
	case ItemSuite:
		ok = it.ChildSuiteID != nil
	default:
		return fmt.Errorf("unknown suite item type: %q", it.Type)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemMismatch, it.Type)
	}
	return nil
}

// TargetID returns the referenced entity id, or 0 when none is set.
func (it SuiteItem) TargetID() int64 {
	switch it.Type {
	case ItemCase:
		if it.TestCaseID != nil {
			return *it.TestCaseID
		}
	case ItemModule:
		if it.ModuleID != nil {
			return *it.ModuleID
		}
	case ItemSuite:
		if it.ChildSuiteID != nil {
			return *it.ChildSuiteID
		}
	}
	return 0
}

// SortItems orders items by ascending SortOrder, keeping storage order for ties.
func SortItems(items []SuiteItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].SortOrder < items[j].SortOrder
	})
}

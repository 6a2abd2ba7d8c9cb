package domain

import "strings"

// SliverState is the lifecycle code stored on a sliver row.
type SliverState int

const (
	SliverNascent        SliverState = 1
	SliverTicketed       SliverState = 2
	SliverActive         SliverState = 4
	SliverActiveTicketed SliverState = 5
	SliverClosed         SliverState = 6
	SliverCloseWait      SliverState = 7
	SliverFailed         SliverState = 8
	SliverUnknown        SliverState = 9
	SliverCloseFail      SliverState = 10
)

var sliverStateNames = map[SliverState]string{
	SliverNascent:        "Nascent",
	SliverTicketed:       "Ticketed",
	SliverActive:         "Active",
	SliverActiveTicketed: "ActiveTicketed",
	SliverClosed:         "Closed",
	SliverCloseWait:      "CloseWait",
	SliverFailed:         "Failed",
	SliverUnknown:        "Unknown",
	SliverCloseFail:      "CloseFail",
}

var sliverStatesByName = invertSliverNames()

func invertSliverNames() map[string]SliverState {
	out := make(map[string]SliverState, len(sliverStateNames))
	for code, name := range sliverStateNames {
		out[strings.ToLower(name)] = code
	}
	return out
}

// AllSliverStates lists every sliver state in code order.
func AllSliverStates() []SliverState {
	return []SliverState{
		SliverNascent, SliverTicketed, SliverActive, SliverActiveTicketed, SliverClosed,
		SliverCloseWait, SliverFailed, SliverUnknown, SliverCloseFail,
	}
}

func (s SliverState) String() string {
	if name, ok := sliverStateNames[s]; ok {
		return name
	}
	return sliverStateNames[SliverUnknown]
}

// TranslateSliverState resolves a state name case-insensitively. Unrecognized
// names resolve to SliverUnknown.
func TranslateSliverState(name string) SliverState {
	if code, ok := sliverStatesByName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return code
	}
	return SliverUnknown
}

// TranslateSliverStates converts a list of names into integer codes for filtering.
func TranslateSliverStates(names []string) []int {
	if len(names) == 0 {
		return nil
	}
	out := make([]int, 0, len(names))
	for _, n := range names {
		out = append(out, int(TranslateSliverState(n)))
	}
	return out
}

// SliceState is the lifecycle code stored on a slice row.
type SliceState int

const (
	SliceNascent SliceState = iota + 1
	SliceConfiguring
	SliceStableError
	SliceStableOK
	SliceClosing
	SliceDead
	SliceModifying
	SliceModifyError
	SliceModifyOK
	SliceAllocatedError
	SliceAllocatedOK
	// SliceAll is a query-only sentinel and never stored.
	SliceAll
)

var sliceStateNames = map[SliceState]string{
	SliceNascent:        "Nascent",
	SliceConfiguring:    "Configuring",
	SliceStableError:    "StableError",
	SliceStableOK:       "StableOK",
	SliceClosing:        "Closing",
	SliceDead:           "Dead",
	SliceModifying:      "Modifying",
	SliceModifyError:    "ModifyError",
	SliceModifyOK:       "ModifyOK",
	SliceAllocatedError: "AllocatedError",
	SliceAllocatedOK:    "AllocatedOK",
	SliceAll:            "All",
}

var sliceStatesByName = invertSliceNames()

func invertSliceNames() map[string]SliceState {
	out := make(map[string]SliceState, len(sliceStateNames))
	for code, name := range sliceStateNames {
		out[strings.ToLower(name)] = code
	}
	// Single-name translation has always resolved the allocated states onto
	// Closing/Dead. Kept as-is until the owners of the upstream state model
	// confirm the intended codes.
	out["allocatedok"] = SliceClosing
	out["allocatederror"] = SliceDead
	return out
}

// AllSliceStates lists every storable slice state in code order (All excluded).
func AllSliceStates() []SliceState {
	out := make([]SliceState, 0, int(SliceAllocatedOK))
	for s := SliceNascent; s <= SliceAllocatedOK; s++ {
		out = append(out, s)
	}
	return out
}

func (s SliceState) String() string {
	if name, ok := sliceStateNames[s]; ok {
		return name
	}
	return sliceStateNames[SliceAll]
}

// TranslateSliceState resolves a state name case-insensitively. Unrecognized
// names resolve to SliceAll.
func TranslateSliceState(name string) SliceState {
	if code, ok := sliceStatesByName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return code
	}
	return SliceAll
}

// TranslateSliceStateList resolves requested names into slice state codes.
// A single "All" expands to every storable state; otherwise only the codes
// whose canonical names were requested are returned.
func TranslateSliceStateList(names []string) []int {
	if len(names) == 0 {
		return nil
	}
	if len(names) == 1 && strings.EqualFold(strings.TrimSpace(names[0]), SliceAll.String()) {
		out := make([]int, 0, int(SliceAllocatedOK))
		for _, s := range AllSliceStates() {
			out = append(out, int(s))
		}
		return out
	}

	requested := make(map[string]struct{}, len(names))
	for _, n := range names {
		requested[strings.ToLower(strings.TrimSpace(n))] = struct{}{}
	}
	var out []int
	for _, s := range AllSliceStates() {
		if _, ok := requested[strings.ToLower(s.String())]; ok {
			out = append(out, int(s))
		}
	}
	return out
}

// SliceStateValuesExClosingDead returns every storable code except Closing and Dead.
func SliceStateValuesExClosingDead() []int {
	var out []int
	for _, s := range AllSliceStates() {
		if s.IsDeadOrClosing() {
			continue
		}
		out = append(out, int(s))
	}
	return out
}

func (s SliceState) IsDeadOrClosing() bool {
	return s == SliceDead || s == SliceClosing
}

func (s SliceState) IsStable() bool {
	return s == SliceStableOK || s == SliceStableError
}

func (s SliceState) IsAllocated() bool {
	return s == SliceAllocatedOK || s == SliceAllocatedError
}

func (s SliceState) IsModified() bool {
	return s == SliceModifyOK || s == SliceModifyError
}

package state

import "context"

// ModKeyMode selects how the mod1/mod2 physical buttons behave, per the
// instrument-mode profile (spec.md §3/§4.7).
type ModKeyMode string

const (
	ModGroup1           ModKeyMode = "group1"
	ModGroup2           ModKeyMode = "group2"
	ModGroupNext        ModKeyMode = "group_next"
	ModGroupPrev        ModKeyMode = "group_prev"
	ModPresetNext       ModKeyMode = "preset_next"
	ModPresetPrev       ModKeyMode = "preset_prev"
	ModPreset           ModKeyMode = "preset"
	ModGroupPresetNext  ModKeyMode = "group_preset_next"
	ModGroupPresetPrev  ModKeyMode = "group_preset_prev"
	ModGroup            ModKeyMode = "group"
)

// InstrumentModeProfile is a named set of instrument-shape parameters
// (spec.md §3). Selecting one overwrites UIState's corresponding
// fields.
type InstrumentModeProfile struct {
	Name              string
	StringCount       int // 1..3
	Mod1KeyMode       ModKeyMode
	Mod2KeyMode       ModKeyMode
	WrapPresets       bool
	WrapGroups        bool
	StringGroupByType bool
}

// UIState holds the menu/display-facing scalars of spec.md §3.
type UIState struct {
	Emitter

	StringGroup       int // 0..2
	StringGroupByType bool
	Brightness        int // 0..100
	Timeout           int // 0..1000 seconds

	StringCount int
	Mod1KeyMode ModKeyMode
	Mod2KeyMode ModKeyMode
	WrapPresets bool
	WrapGroups  bool

	// MultiChienThreshold selects whether the three trompette voices
	// share trompette[0]'s chien_threshold (false) or each keep their
	// own (true) — spec.md §4.7/§4.9's "multi_chien_threshold" feature
	// flag.
	MultiChienThreshold bool

	ProfileName string
}

func NewUIState(emitter Emitter) *UIState {
	return &UIState{
		Emitter:     emitter,
		Brightness:  100,
		Timeout:     60,
		StringCount: 3,
	}
}

// GroupCount is the number of selectable string groups: 3 when grouping
// by type (melody/drone/trompette rows), else the instrument's string
// count (spec.md §4.7).
func (u *UIState) GroupCount() int {
	if u.StringGroupByType {
		return 3
	}

	return u.StringCount
}

// SelectProfile applies profile's fields to u, per spec.md §3: "Selecting
// a profile overwrites these fields and resets ui.string_group to the
// default (0 or 1 depending on string_group_by_type)." The original
// implementation's "nine_cols" profile (S5, spec.md §8) resets
// string_group to 1, so the default for string_group_by_type=true is 1,
// and 0 otherwise.
func (u *UIState) SelectProfile(ctx context.Context, profile InstrumentModeProfile) {
	SetField(u.Emitter, ctx, "profile_name", &u.ProfileName, profile.Name, u)
	SetField(u.Emitter, ctx, "string_count", &u.StringCount, profile.StringCount, u)
	SetField(u.Emitter, ctx, "mod1_key_mode", &u.Mod1KeyMode, profile.Mod1KeyMode, u)
	SetField(u.Emitter, ctx, "mod2_key_mode", &u.Mod2KeyMode, profile.Mod2KeyMode, u)
	SetField(u.Emitter, ctx, "wrap_presets", &u.WrapPresets, profile.WrapPresets, u)
	SetField(u.Emitter, ctx, "wrap_groups", &u.WrapGroups, profile.WrapGroups, u)
	SetField(u.Emitter, ctx, "string_group_by_type", &u.StringGroupByType, profile.StringGroupByType, u)

	def := 0
	if profile.StringGroupByType {
		def = 1
	}

	SetField(u.Emitter, ctx, "string_group", &u.StringGroup, def, u)
}

func (u *UIState) SetStringGroup(ctx context.Context, group int) {
	SetField(u.Emitter, ctx, "string_group", &u.StringGroup, clamp(group, 0, u.GroupCount()-1), u)
}

func (u *UIState) SetBrightness(ctx context.Context, brightness int) {
	SetField(u.Emitter, ctx, "brightness", &u.Brightness, clamp(brightness, 0, 100), u)
}

func (u *UIState) SetTimeout(ctx context.Context, timeout int) {
	SetField(u.Emitter, ctx, "timeout", &u.Timeout, clamp(timeout, 0, 1000), u)
}

func (u *UIState) SetMultiChienThreshold(ctx context.Context, multi bool) {
	SetField(u.Emitter, ctx, "multi_chien_threshold", &u.MultiChienThreshold, multi, u)
}

// StepGroup moves string_group by delta, clamping or wrapping within
// [0, GroupCount()-1] depending on wrap (spec.md §4.7's group_next/prev).
func (u *UIState) StepGroup(ctx context.Context, delta int, wrap bool) {
	count := u.GroupCount()
	next := u.StringGroup + delta

	if wrap {
		next = ((next % count) + count) % count
	} else {
		next = clamp(next, 0, count-1)
	}

	SetField(u.Emitter, ctx, "string_group", &u.StringGroup, next, u)
}

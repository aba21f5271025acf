// Package menu implements the page stack of spec.md §4.8: push/pop/
// goto/message/lock_state, and the composable page kinds (Deck,
// ConfigList, Slider, TextInputPage, MessagePage).
package menu

import "github.com/midigurdy/core/internal/adapters"

// Display is the pixel-level draw surface pages render to. It is the
// same interface internal/adapters defines for controllers, re-exported
// here under the name spec.md's menu section expects so page code reads
// "menu.Display" rather than reaching into an unrelated package by
// implication.
type Display = adapters.Display

package menu

import "context"

// textInputAlphabet is the char-wheel's cycle order at each cursor
// position (spec.md §4.8's char-wheel editing).
const textInputAlphabet = " ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_"

// TextInputPage provides char-wheel editing with DEL/◀/▶/SAVE button
// semantics (spec.md §4.8).
type TextInputPage struct {
	BasePage

	runes  []rune
	cursor int

	OnSave func(ctx context.Context, text string)
}

// NewTextInputPage seeds the editor with initial text.
func NewTextInputPage(initial string, onSave func(ctx context.Context, text string)) *TextInputPage {
	return &TextInputPage{runes: []rune(initial), OnSave: onSave}
}

func (p *TextInputPage) Text() string { return string(p.runes) }

func (p *TextInputPage) ensureCursorChar() {
	for p.cursor >= len(p.runes) {
		p.runes = append(p.runes, ' ')
	}
}

// HandleInput recognizes select=SAVE, back=DEL-at-cursor, mod1/mod2 as
// ◀/▶ cursor movement, and encoder as the char wheel.
func (p *TextInputPage) HandleInput(ctx context.Context, ev InputEvent) bool {
	switch {
	case ev.Name == "select" && ev.Action == "short":
		if p.OnSave != nil {
			p.OnSave(ctx, p.Text())
		}

		return true

	case ev.Name == "back" && ev.Action == "short":
		if len(p.runes) > 0 && p.cursor < len(p.runes) {
			p.runes = append(p.runes[:p.cursor], p.runes[p.cursor+1:]...)
		}

		return true

	case ev.Name == "mod1" && ev.Action == "short":
		if p.cursor > 0 {
			p.cursor--
		}

		return true

	case ev.Name == "mod2" && ev.Action == "short":
		p.cursor++
		p.ensureCursorChar()

		return true

	case ev.Name == "encoder":
		p.ensureCursorChar()
		p.stepChar(ev.Value)

		return true
	}

	return false
}

func (p *TextInputPage) stepChar(delta int) {
	alphabet := []rune(textInputAlphabet)

	idx := 0
	for i, r := range alphabet {
		if r == p.runes[p.cursor] {
			idx = i
			break
		}
	}

	idx = ((idx+delta)%len(alphabet) + len(alphabet)) % len(alphabet)
	p.runes[p.cursor] = alphabet[idx]
}

func (p *TextInputPage) Render(ctx context.Context, d Display) {
	d.Clear(ctx)
	d.Puts(ctx, 0, 0, p.Text())
	d.Update(ctx)
}

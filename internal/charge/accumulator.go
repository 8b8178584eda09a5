package charge

import "github.com/shopspring/decimal"

// Key identifies a breakdown line.
type Key struct {
	VendorID  int64
	ServiceID int64
}

// Line is the running total of one (vendor, service) pair.
type Line struct {
	Key
	Count  int64
	Amount decimal.Decimal
}

// Accumulator keeps lines in first-seen order. The zero value is ready to use.
type Accumulator struct {
	index map[Key]int
	lines []Line
}

func (a *Accumulator) Add(key Key, amount decimal.Decimal) {
	a.Merge(Line{Key: key, Count: 1, Amount: amount})
}

// Lines returns a copy of the breakdown.
func (a *Accumulator) Lines() []Line {
	out := make([]Line, len(a.lines))
	copy(out, a.lines)
	return out
}

func (a *Accumulator) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range a.lines {
		total = total.Add(l.Amount)
	}
	return total
}

func (a *Accumulator) Len() int { return len(a.lines) }

// Merge folds a line from another accumulator into a.
func (a *Accumulator) Merge(l Line) {
	if a.index == nil {
		a.index = make(map[Key]int)
	}
	i, ok := a.index[l.Key]
	if !ok {
		a.index[l.Key] = len(a.lines)
		a.lines = append(a.lines, Line{Key: l.Key, Amount: decimal.Zero})
		i = len(a.lines) - 1
	}
	a.lines[i].Count += l.Count
	a.lines[i].Amount = a.lines[i].Amount.Add(l.Amount)
}

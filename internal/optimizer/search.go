package optimizer

import (
	"github.com/shopspring/decimal"

	"swap-router/internal/fill"
	"swap-router/internal/path"
	"swap-router/internal/source"
)

// frame 是显式栈上的一层，记录当前路径前缀的累计值与下一个待考察的候选位置。
// 完整取用的节点按排序位置递增加入，floor 之前的节点只能作为收尾节点。
type frame struct {
	next      int
	floor     int
	depth     int
	input     decimal.Decimal
	output    decimal.Decimal
	flags     source.Flag
	exclusion source.Flag
	// back 为 floor 之前尚未入路径节点中最优的单位调整后输出。
	back    decimal.Decimal
	hasBack bool
}

type search struct {
	side     fill.Side
	target   decimal.Decimal
	runLimit int

	fills []*fill.Fill
	// bound[i] 为 fills[i:] 中最优的单位调整后输出，用于剪枝。
	bound []decimal.Decimal

	current []int
	inPath  map[int]bool

	visits     int
	best       path.Path
	bestOutput decimal.Decimal
	hasBest    bool
	improved   bool
}

func newSearch(side fill.Side, target decimal.Decimal, runLimit int, sorted []*fill.Fill) *search {
	s := &search{
		side:     side,
		target:   target,
		runLimit: runLimit,
		fills:    sorted,
		bound:    make([]decimal.Decimal, len(sorted)),
		current:  make([]int, 0, len(sorted)),
		inPath:   make(map[int]bool, len(sorted)),
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		v := sorted[i].UnitValue()
		if i+1 < len(sorted) && side.Better(s.bound[i+1], v) {
			v = s.bound[i+1]
		}
		s.bound[i] = v
	}
	return s
}

// run 以深度优先方式枚举路径。完整取用的节点按排序位置递增选择，
// 收尾节点可以是任意未入路径的可接纳节点，因此先前因前驱缺席而跳过的节点仍可被用来收尾。
// 每考察一个候选消耗一个预算单位。
func (s *search) run() {
	stack := []frame{{input: decimal.Zero, output: decimal.Zero}}

	for len(stack) > 0 {
		if s.visits >= s.runLimit {
			return
		}

		top := &stack[len(stack)-1]
		s.truncate(top.depth)

		if top.next >= len(s.fills) {
			stack = stack[:len(stack)-1]
			continue
		}

		remaining := s.target.Sub(top.input)
		if s.hasBest && !s.canImprove(top, remaining) {
			stack = stack[:len(stack)-1]
			continue
		}

		i := top.next
		top.next++

		f := s.fills[i]
		if i < top.floor && (s.contains(f.ID) || f.Input.LessThan(remaining)) {
			continue
		}
		s.visits++

		if !f.Admissible(s.contains, top.flags, top.exclusion) {
			continue
		}

		used := decimal.Min(f.Input, remaining)
		output := top.output.Add(f.AdjustedOutput().Mul(used).Div(f.Input))

		if f.Input.GreaterThanOrEqual(remaining) {
			s.consider(i, output)
			continue
		}

		next := frame{
			floor:     i + 1,
			depth:     len(s.current) + 1,
			input:     top.input.Add(f.Input),
			output:    output,
			flags:     top.flags | f.Flags,
			exclusion: top.exclusion | f.Exclusion,
		}
		s.push(i)
		next.back, next.hasBack = s.bestBefore(next.floor)
		stack = append(stack, next)
	}
}

// bestBefore 返回 fills[:end] 中未入路径节点的最优单位调整后输出。
func (s *search) bestBefore(end int) (decimal.Decimal, bool) {
	var (
		best  decimal.Decimal
		found bool
	)
	for _, f := range s.fills[:end] {
		if s.contains(f.ID) {
			continue
		}
		if v := f.UnitValue(); !found || s.side.Better(v, best) {
			best, found = v, true
		}
	}
	return best, found
}

// canImprove 判断以最优单位价值补足剩余数量后能否严格优于当前最优。
func (s *search) canImprove(top *frame, remaining decimal.Decimal) bool {
	rate, ok := top.back, top.hasBack
	if k := max(top.next, top.floor); k < len(s.fills) {
		if !ok || s.side.Better(s.bound[k], rate) {
			rate, ok = s.bound[k], true
		}
	}
	if !ok {
		return false
	}
	optimistic := top.output.Add(remaining.Mul(rate))
	return s.side.Better(optimistic, s.bestOutput)
}

// consider 以 i 为末节点评估完整路径，仅在严格更优时替换，平局保留先发现者。
func (s *search) consider(last int, output decimal.Decimal) {
	if s.hasBest && !s.side.Better(output, s.bestOutput) {
		return
	}
	p := make(path.Path, 0, len(s.current)+1)
	for _, idx := range s.current {
		p = append(p, s.fills[idx])
	}
	p = append(p, s.fills[last])

	s.best = p
	s.bestOutput = output
	s.improved = true
	s.hasBest = true
}

func (s *search) push(i int) {
	s.current = append(s.current, i)
	s.inPath[s.fills[i].ID] = true
}

func (s *search) truncate(depth int) {
	for len(s.current) > depth {
		last := s.current[len(s.current)-1]
		delete(s.inPath, s.fills[last].ID)
		s.current = s.current[:len(s.current)-1]
	}
}

func (s *search) contains(id int) bool {
	return s.inPath[id]
}

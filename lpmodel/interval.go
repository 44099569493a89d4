// Copyright 2025 The optdiag Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package lpmodel

import (
	"fmt"
	"math"
)

// Interval stores the closed real interval `[Lo,Hi]`. Either end may be
// infinite. If `Lo` is greater than `Hi`, the interval is considered empty.
type Interval struct {
	Lo float64
	Hi float64
}

// NewInterval creates the interval `[lo,hi]`.
func NewInterval(lo, hi float64) Interval {
	return Interval{Lo: lo, Hi: hi}
}

// UnboundedInterval creates the interval `[-Inf,+Inf]`.
func UnboundedInterval() Interval {
	return Interval{Lo: math.Inf(-1), Hi: math.Inf(1)}
}

// IsEmpty reports whether the interval contains no value.
func (i Interval) IsEmpty() bool {
	return i.Lo > i.Hi
}

// Width returns `Hi - Lo`. The width of an empty interval is negative.
func (i Interval) Width() float64 {
	return i.Hi - i.Lo
}

// Contains reports whether `v` lies in the interval.
func (i Interval) Contains(v float64) bool {
	return i.Lo <= v && v <= i.Hi
}

// Add returns the interval sum `{a+b : a in i, b in o}`.
func (i Interval) Add(o Interval) Interval {
	return Interval{Lo: i.Lo + o.Lo, Hi: i.Hi + o.Hi}
}

// Offset returns the interval shifted by `delta`.
func (i Interval) Offset(delta float64) Interval {
	return Interval{Lo: i.Lo + delta, Hi: i.Hi + delta}
}

// Scale returns the interval `{c*a : a in i}`. A negative coefficient swaps
// the ends, preserving the `Lo <= Hi` invariant. Scaling by zero yields
// `[0,0]` even when an end is infinite.
func (i Interval) Scale(c float64) Interval {
	if c == 0 {
		return Interval{}
	}
	if c < 0 {
		return Interval{Lo: i.Hi * c, Hi: i.Lo * c}
	}
	return Interval{Lo: i.Lo * c, Hi: i.Hi * c}
}

// Intersect returns the intersection of the two intervals, which may be
// empty.
func (i Interval) Intersect(o Interval) Interval {
	return Interval{Lo: math.Max(i.Lo, o.Lo), Hi: math.Min(i.Hi, o.Hi)}
}

func (i Interval) String() string {
	return fmt.Sprintf("[%g, %g]", i.Lo, i.Hi)
}

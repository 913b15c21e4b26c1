// Copyright (c) 2024 @neongreen (https://github.com/neongreen)
// Originally from: https://github.com/neongreen/mono/tree/main/beads-merge
//
// MIT License
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//
// ---
// Vendored into beads with permission from @neongreen.
// See: https://github.com/neongreen/mono/issues/240

package merge

import (
	"time"

	"github.com/roadmap-cli/roadmap/internal/types"
)

// mergeFieldByUpdatedAt performs a 3-way merge of a scalar field. A change on
// only one side wins; when both sides changed to different values the side
// with the later updated_at wins, and on a tie the remote side wins.
func mergeFieldByUpdatedAt(base, local, remote string, localUpdatedAt, remoteUpdatedAt time.Time) string {
	if base == local && base != remote {
		return remote
	}
	if base == remote && base != local {
		return local
	}
	if local == remote {
		return local
	}
	if isTimeAfter(localUpdatedAt, remoteUpdatedAt) {
		return local
	}
	return remote
}

// isTimeAfter returns true if t1 is strictly after t2. A set time beats an
// unset time; two unset times or an exact tie return false so the remote
// side wins.
func isTimeAfter(t1, t2 time.Time) bool {
	t1Zero := t1.IsZero()
	t2Zero := t2.IsZero()

	if t1Zero {
		return false
	}
	if t2Zero {
		return true
	}
	return t1.After(t2)
}

// maxTime returns the later of two times. Zero times are treated as unset.
func maxTime(t1, t2 time.Time) time.Time {
	if t1.IsZero() {
		return t2
	}
	if t2.IsZero() {
		return t1
	}
	if t1.After(t2) {
		return t1
	}
	return t2
}

// mergeLabels performs a 3-way set merge. Every label present on either side
// is kept unless one side removed it relative to base while the other side
// left it in place; removals on both sides are honored too.
func mergeLabels(base, local, remote types.LabelSet) types.LabelSet {
	var out []string
	for _, l := range local.Union(remote) {
		inLocal := local.Contains(l)
		inRemote := remote.Contains(l)
		if base.Contains(l) && (!inLocal || !inRemote) {
			// removed on one side, untouched on the other
			continue
		}
		out = append(out, l)
	}
	return types.NewLabelSet(out...)
}

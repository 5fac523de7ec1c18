// Copyright 2025 The Tenet Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cc

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/tenet-prover/tenet/term"
	"github.com/tenet-prover/tenet/util"
)

// DumpEqcs renders the current partition as a table, one row per
// equivalence class. Singleton classes are skipped unless all is set.
func (c *CC) DumpEqcs(w io.Writer, all bool) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Root", "Size", "HEq", "MT", "Members"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	for _, root := range c.state.Roots(!all) {
		n, ok := c.state.entry(root)
		if !ok {
			continue
		}
		members := make([]string, 0, n.size)
		for _, m := range c.state.Eqc(root) {
			members = append(members, m.String())
		}
		sort.Strings(members)
		table.Append([]string{
			root.String(),
			strconv.Itoa(n.size),
			strconv.FormatBool(n.heqProofs),
			strconv.FormatUint(n.mt, 10),
			strings.Join(members, ", "),
		})
	}
	table.Render()
}

// DumpParents renders the parent occurrence index, one row per tracked
// class root.
func (c *CC) DumpParents(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Term", "Parents"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	c.state.parents.Iter(func(child term.Term, ps util.TreeSet[parentOcc]) bool {
		occs := make([]string, 0, ps.Len())
		ps.Iter(func(occ parentOcc) bool {
			s := occ.parent.String()
			if occ.symm {
				s += " (symm)"
			}
			occs = append(occs, s)
			return false
		})
		table.Append([]string{child.String(), strings.Join(occs, ", ")})
		return false
	})
	table.Render()
}

// DumpCongruences renders both congruence tables: the fingerprint owner
// of every occupied slot.
func (c *CC) DumpCongruences(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Table", "Key", "Representative"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	c.state.congruences.Iter(func(k congrKey, rep term.Term) bool {
		args := make([]string, 0, len(k.args))
		for _, a := range k.args {
			args = append(args, a.String())
		}
		kind := "app"
		if k.fo {
			kind = "app/fo"
		}
		table.Append([]string{
			kind,
			fmt.Sprintf("%v(%s)", k.fn, strings.Join(args, ", ")),
			rep.String(),
		})
		return false
	})
	c.state.symmCongruences.Iter(func(k symmKey, rep term.Term) bool {
		table.Append([]string{
			"symm",
			fmt.Sprintf("%s(%v, %v)", k.rel, k.lhs, k.rhs),
			rep.String(),
		})
		return false
	})
	table.Render()
}

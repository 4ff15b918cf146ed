// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"bufio"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/fastwire/fastenc/fast"
	"github.com/fastwire/fastenc/fast/fastfixture"
)

func main() {
	overlong := flag.Bool("overlong", false, "keep presence maps at their reserved width instead of trimming")
	flag.Parse()

	o := bufio.NewWriter(os.Stdout)
	args := flag.Args()
	if len(args) == 0 {
		args = []string{"-"}
	}

	for _, arg := range args {
		if err := encodeOne(o, arg, *overlong); err != nil {
			fmt.Fprintf(os.Stderr, "input %s: %s\n", arg, err)
			os.Exit(1)
		}
	}
	if err := o.Flush(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func encodeOne(o *bufio.Writer, arg string, overlong bool) error {
	var in *os.File
	if arg == "-" {
		in = os.Stdin
	} else {
		var err error
		in, err = os.Open(arg)
		if err != nil {
			return fmt.Errorf("can't open %q: %w", arg, err)
		}
		defer in.Close()
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	doc, err := fastfixture.Load(data)
	if err != nil {
		return err
	}
	templates, err := doc.Templates()
	if err != nil {
		return err
	}

	enc := fast.New(fast.WithAllowOverlongPmap(overlong))
	for _, tpl := range templates {
		if err := enc.Include(tpl); err != nil {
			return err
		}
	}

	tpl, ok := enc.Repository().Find(doc.TemplateID)
	if !ok {
		return fmt.Errorf("fixture names unregistered template id %d", doc.TemplateID)
	}
	values, err := doc.MessageValues(tpl)
	if err != nil {
		return err
	}

	sink := fast.NewGrowableSink(256)
	if err := enc.Encode(sink, doc.TemplateID, values, false); err != nil {
		return err
	}

	fmt.Fprintf(o, "%s\n", hex.EncodeToString(sink.Bytes()))
	return nil
}

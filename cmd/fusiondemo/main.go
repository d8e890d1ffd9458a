// Command fusiondemo builds a fusion tree from a few keys and answers
// predecessor queries, either from flags or from an interactive prompt.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	fusiontree "github.com/AlexWan0/go-fusiontree"
	"github.com/chzyer/readline"
	"github.com/fatih/color"
)

var (
	label = color.New(color.FgCyan).SprintFunc()
	value = color.New(color.FgGreen).SprintFunc()
	fail  = color.New(color.FgRed).SprintFunc()
)

func main() {
	def := fusiontree.DefaultConfig()
	wordSize := flag.Int("word", def.WordSize, "word size in bits")
	elementSize := flag.Int("element", def.ElementSize, "element size in bits, a perfect square")
	capacity := flag.Int("capacity", def.Capacity, "maximum number of keys")
	keyList := flag.String("keys", "1,4,9,16,25", "comma separated keys")
	queryList := flag.String("query", "3,9,0", "comma separated predecessor queries")
	dumpBits := flag.Int("dump", 0, "print the sorted keys with this many low bits")
	interactive := flag.Bool("i", false, "read further queries from a prompt")
	flag.Parse()

	if err := run(fusiontree.Config{WordSize: *wordSize, ElementSize: *elementSize, Capacity: *capacity},
		*keyList, *queryList, *dumpBits, *interactive); err != nil {
		fmt.Fprintln(os.Stderr, fail(err))
		os.Exit(1)
	}
}

func run(cfg fusiontree.Config, keyList, queryList string, dumpBits int, interactive bool) error {
	env, err := cfg.NewEnvironment()
	if err != nil {
		return err
	}
	keys, err := parseWords(env, keyList)
	if err != nil {
		return err
	}
	ft, err := fusiontree.New(keys, env)
	if err != nil {
		return err
	}
	fmt.Printf("%s %d keys\n", label("fusion tree:"), ft.Size())
	if dumpBits > 0 {
		fmt.Print(ft.Render(fusiontree.RenderOptions{Bits: dumpBits, Group: 8, Delimiter: " "}))
	}
	queries, err := parseWords(env, queryList)
	if err != nil {
		return err
	}
	for _, q := range queries {
		answer(ft, q)
	}
	if interactive {
		return prompt(env, ft)
	}
	return nil
}

func prompt(env *fusiontree.Environment, ft *fusiontree.FusionTree) error {
	rl, err := readline.New("fusion> ")
	if err != nil {
		return err
	}
	defer rl.Close()
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				return nil
			}
			continue
		} else if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		queries, err := parseWords(env, line)
		if err != nil {
			fmt.Println(fail(err))
			continue
		}
		for _, q := range queries {
			answer(ft, q)
		}
	}
}

func answer(ft *fusiontree.FusionTree, q fusiontree.Word) {
	rank := ft.FindPredecessor(q)
	if rank < 0 {
		fmt.Printf("%s %s -> %s\n", label("predecessor"), q.Big(), value("none"))
		return
	}
	fmt.Printf("%s %s -> rank %s (%s)\n", label("predecessor"), q.Big(), value(rank), value(ft.Pos(rank).Big()))
}

func parseWords(env *fusiontree.Environment, list string) ([]fusiontree.Word, error) {
	var words []fusiontree.Word
	for _, field := range strings.FieldsFunc(list, func(r rune) bool { return r == ',' || r == ' ' }) {
		v, ok := new(big.Int).SetString(field, 0)
		if !ok || v.Sign() < 0 {
			return nil, fmt.Errorf("not a nonnegative integer: %q", field)
		}
		if v.BitLen() > env.ElementSize() {
			return nil, errors.New("value exceeds element size: " + field)
		}
		words = append(words, fusiontree.WordFromBig(env.WordSize(), v))
	}
	return words, nil
}

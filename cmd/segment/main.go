// Segment a transcript read from stdin into lines, the way the live
// transcript panel does.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"

	"lecnote/internal/segment"
)

func main() {
	lang := flag.String("lang", "ko-KR", "Recognition language (BCP-47)")
	chunk := flag.Int("chunk", segment.DefaultChunkWords, "Words per line for non-Korean languages")
	stream := flag.Bool("stream", false, "Treat each input line as a growing transcript update")
	copyOut := flag.Bool("copy", false, "Also copy the segmented lines to the clipboard")
	flag.Parse()

	var out []string
	printLines := func(lines []string) {
		for _, line := range lines {
			fmt.Println(line)
		}
		out = append(out, lines...)
	}

	seg := segment.NewSegmenter(segment.PolicyFor(*lang, *chunk))

	if *stream {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			printLines(seg.Next(scanner.Text()))
		}
		if err := scanner.Err(); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		printLines(seg.Next(string(data)))
	}
	printLines(seg.Flush())

	if *copyOut && len(out) > 0 {
		if err := clipboard.WriteAll(strings.Join(out, "\n")); err != nil {
			fmt.Fprintf(os.Stderr, "warning: clipboard unavailable: %v\n", err)
		}
	}
}

package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/prism/pkg/compression"
	"github.com/ajitpratap0/prism/pkg/config"
	"github.com/ajitpratap0/prism/pkg/errors"
	"github.com/ajitpratap0/prism/pkg/parser"
	"github.com/ajitpratap0/prism/pkg/session"
)

func newSniffCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sniff <input>",
		Short: "Detect the format, delimiter, header and compression of an input",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithOverrides(*configPath, cmd.Flags())
			if err != nil {
				return err
			}
			result, err := sniffInput(cmd.InOrStdin(), args[0], cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "format:      %s\n", result.dialect.Format)
			if result.dialect.Format == parser.FormatCSV {
				fmt.Fprintf(out, "delimiter:   %s\n", strconv.QuoteRune(rune(result.dialect.Delimiter)))
				fmt.Fprintf(out, "header:      %t\n", result.dialect.HasHeader)
			}
			fmt.Fprintf(out, "compression: %s\n", result.compression)
			return nil
		},
	}
}

type sniffResult struct {
	dialect     parser.Dialect
	compression compression.Algorithm
}

// sniffInput inspects the first sniff_bytes of a local path or stdin.
func sniffInput(stdin io.Reader, path string, cfg *config.ProfileConfig) (sniffResult, error) {
	var r io.Reader = stdin
	name := "stdin"
	if path != "-" {
		f, err := inputFs.Open(path)
		if err != nil {
			return sniffResult{}, errors.Wrap(err, errors.KindSource, "failed to open input").
				WithDetail("path", path)
		}
		defer f.Close()
		r, name = f, path
	}

	br := bufio.NewReader(r)
	alg, err := compression.ParseAlgorithm(cfg.Input.Compression)
	if err != nil {
		return sniffResult{}, errors.Wrap(err, errors.KindConfig, "invalid compression setting")
	}
	if alg == compression.Auto {
		header, _ := br.Peek(compression.HeaderSize)
		alg = compression.Detect(header)
		if alg == compression.None {
			alg = compression.FromExtension(name)
		}
	}
	dr, err := compression.NewReader(br, alg)
	if err != nil {
		return sniffResult{}, errors.Wrap(err, errors.KindSource, "failed to open decompressor")
	}
	defer dr.Close()

	sample := make([]byte, cfg.Input.SniffBytes)
	n, err := io.ReadFull(dr, sample)
	atEOF := err == io.EOF || err == io.ErrUnexpectedEOF
	if err != nil && !atEOF {
		return sniffResult{}, errors.Wrap(err, errors.KindSource, "failed to read input")
	}
	sample = sample[:n]

	d, err := session.ResolveDialect(cfg.Input, sample, atEOF)
	if err != nil {
		return sniffResult{}, err
	}
	return sniffResult{dialect: d, compression: alg}, nil
}

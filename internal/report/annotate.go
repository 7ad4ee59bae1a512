package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/chrissnell/massindex/internal/temporal"
)

const annotationTimeLayout = "2006-01-02 15:04:05"

// AnnotationColumns returns the header of an annotated dataset: the record
// columns followed by a label and mass index column per temporality
func AnnotationColumns(temporalities []temporal.Temporality) []string {
	columns := []string{"time", "amplitude"}
	for _, t := range temporalities {
		columns = append(columns, "window_"+t.String(), "mass_index_"+t.String())
	}
	return columns
}

// WriteAnnotations writes the records with the mass index of their windows as
// CSV. Only the Comma, DecimalPoint and Compression options apply.
func WriteAnnotations(w io.Writer, annotations []temporal.Annotation, temporalities []temporal.Temporality, opts TableOptions) error {
	cw, err := compressWriter(w, opts.Compression)
	if err != nil {
		return err
	}

	out := csv.NewWriter(cw)
	out.Comma = ';'
	if opts.Comma != 0 {
		out.Comma = opts.Comma
	}

	if err := out.Write(AnnotationColumns(temporalities)); err != nil {
		cw.Close()
		return err
	}

	record := make([]string, 0, 2+2*len(temporalities))
	for _, a := range annotations {
		record = append(record[:0],
			a.Record.Time.Format(annotationTimeLayout),
			formatNumber(a.Record.Amplitude, opts.DecimalPoint))
		for _, t := range temporalities {
			record = append(record, a.Labels[t], formatNumber(a.MassIndex[t], opts.DecimalPoint))
		}
		if err := out.Write(record); err != nil {
			cw.Close()
			return fmt.Errorf("error writing annotation: %w", err)
		}
	}

	out.Flush()
	if err := out.Error(); err != nil {
		cw.Close()
		return err
	}
	return cw.Close()
}

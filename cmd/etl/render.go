package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/Joel785/Medallion-Project/internal/services"
	"github.com/Joel785/Medallion-Project/pkg/models"
)

// renderer prints command results as a table, JSON or YAML.
type renderer struct {
	format string
}

func newRenderer(format string) (*renderer, error) {
	switch format {
	case "table", "json", "yaml":
		return &renderer{format: format}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

// encode handles the structured formats and reports whether it did.
func (r *renderer) encode(w io.Writer, v interface{}) (bool, error) {
	switch r.format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case "yaml":
		b, err := toYAML(v)
		if err != nil {
			return true, err
		}
		_, err = w.Write(b)
		return true, err
	}
	return false, nil
}

// toYAML goes through JSON so field names and money formatting match the
// JSON output, then re-emits the document in block style.
func toYAML(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	blockStyle(&doc)
	return yaml.Marshal(&doc)
}

func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle | yaml.DoubleQuotedStyle
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func (r *renderer) bronze(w io.Writer, load *services.BronzeLoad) error {
	if ok, err := r.encode(w, load); ok {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "batch %s from %s: %d rows\n", load.Batch.ID, load.Batch.Source, load.Rows())
	fmt.Fprintln(tw, "KIND\tSOURCE\tROWS\tSTATUS\tCHECKSUM")
	for _, e := range load.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", e.Kind, e.SourceName, e.Rows, e.Status, e.Checksum)
	}
	return tw.Flush()
}

func (r *renderer) batches(w io.Writer, outcomes []models.BatchOutcome) error {
	if outcomes == nil {
		outcomes = []models.BatchOutcome{}
	}
	if ok, err := r.encode(w, outcomes); ok {
		return err
	}
	if len(outcomes) == 0 {
		_, err := fmt.Fprintln(w, "no pending batches")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BATCH\tKIND\tCHECKED\tLOADED\tREJECTED\tREAFFIRMED")
	for _, o := range outcomes {
		for _, k := range o.Kinds {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\n", o.BatchID, k.Kind, k.Checked, k.Loaded, k.Rejected, k.Reaffirmed)
		}
	}
	return tw.Flush()
}

func (r *renderer) build(w io.Writer, info *models.BuildInfo) error {
	if ok, err := r.encode(w, info); ok {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "gold build %s (processing date %s)\n", info.Version(), info.ProcessingDate.Format("2006-01-02"))
	fmt.Fprintln(tw, "TABLE\tROWS")
	names := make([]string, 0, len(info.TableRows))
	for name := range info.TableRows {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(tw, "%s\t%d\n", name, info.TableRows[name])
	}
	return tw.Flush()
}

func (r *renderer) report(w io.Writer, report *models.ReconciliationReport) error {
	if ok, err := r.encode(w, report); ok {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RULE\tKEY\tSILVER\tGOLD\tRESULT")
	for _, res := range report.Results {
		result := "ok"
		if !res.Passed {
			result = "MISMATCH"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", res.Rule, res.Key, res.SilverValue, res.GoldValue, result)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if report.Passed {
		_, err := fmt.Fprintf(w, "reconciliation passed (%d rules)\n", len(report.Results))
		return err
	}
	_, err := fmt.Fprintf(w, "reconciliation FAILED (%d of %d rules)\n", report.Failures, len(report.Results))
	return err
}

func (r *renderer) summary(w io.Writer, s *models.RunSummary) error {
	if s == nil {
		return nil
	}
	if ok, err := r.encode(w, s); ok {
		return err
	}
	if s.BatchID != nil {
		fmt.Fprintf(w, "loaded bronze batch %s\n", s.BatchID)
	}
	if err := r.batches(w, s.Batches); err != nil {
		return err
	}
	if s.GoldBuild != nil {
		if err := r.build(w, s.GoldBuild); err != nil {
			return err
		}
	}
	if s.Reconciliation != nil {
		return r.report(w, s.Reconciliation)
	}
	return nil
}

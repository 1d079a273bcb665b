package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/roach88/tradeledger/internal/document"
	"github.com/roach88/tradeledger/internal/history"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func renderAsset(w io.Writer, a *document.Asset) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "ID:\t%s\n", a.ID)
	fmt.Fprintf(tw, "File:\t%s\n", a.FileName)
	fmt.Fprintf(tw, "Hash:\t%s\n", a.FileHash)
	fmt.Fprintf(tw, "Created by:\t%s\n", a.CreatedBy)
	fmt.Fprintf(tw, "Created:\t%s\n", a.CreationDate)
	return tw.Flush()
}

func renderAssets(w io.Writer, assets []*document.Asset) error {
	if len(assets) == 0 {
		_, err := fmt.Fprintln(w, "No assets.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tFILE\tHASH\tCREATED BY\tCREATED")
	for _, a := range assets {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.FileName, a.FileHash, a.CreatedBy, a.CreationDate)
	}
	return tw.Flush()
}

func renderProcess(w io.Writer, p *document.Process) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "ID:\t%s\n", p.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(tw, "Description:\t%s\n", p.Description)
	}
	fmt.Fprintf(tw, "Importer:\t%s\n", p.Importer)
	fmt.Fprintf(tw, "Exporter:\t%s\n", p.Exporter)
	fmt.Fprintf(tw, "Route:\t%s -> %s\n", p.Origin, p.Destination)
	fmt.Fprintf(tw, "Stage:\t%s\n", p.Stage)
	fmt.Fprintf(tw, "Status:\t%s\n", statusLine(p))
	fmt.Fprintf(tw, "Total:\t%s %s (%d items)\n", formatAmount(p.TotalValue), p.Currency, p.TotalItems)
	fmt.Fprintf(tw, "Assets:\t%s\n", strings.Join(p.Assets, ", "))
	fmt.Fprintf(tw, "Created:\t%s by %s\n", p.CreatedDate, p.CreatedBy)
	if p.ConcludedDate != "" {
		fmt.Fprintf(tw, "Concluded:\t%s\n", p.ConcludedDate)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(p.ItemsList) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw = newTable(w)
	fmt.Fprintln(tw, "ITEM\tPART\tDESCRIPTION\tQTY\tUNIT\tUNIT VALUE\tTOTAL")
	for _, it := range p.ItemsList {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			it.ItemID, it.PartNo, it.Description, it.Quantity, it.MesUnit,
			formatAmount(it.UnitValue), formatAmount(it.TotalValue))
	}
	return tw.Flush()
}

func renderProcesses(w io.Writer, processes []*document.Process) error {
	if len(processes) == 0 {
		_, err := fmt.Fprintln(w, "No processes.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tSTAGE\tSTATUS\tTOTAL\tITEMS")
	for _, p := range processes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s %s\t%d\n",
			p.ID, p.Name, p.Stage, p.ApprovalStatus, formatAmount(p.TotalValue), p.Currency, p.TotalItems)
	}
	return tw.Flush()
}

func renderTransactions(w io.Writer, txs []history.Transaction) error {
	if len(txs) == 0 {
		_, err := fmt.Fprintln(w, "No transactions.")
		return err
	}
	withKey := txs[0].Key != ""
	tw := newTable(w)
	if withKey {
		fmt.Fprintln(tw, "KEY\tTIMESTAMP\tBY\tTX")
	} else {
		fmt.Fprintln(tw, "TIMESTAMP\tBY\tTX")
	}
	for _, tx := range txs {
		if withKey {
			fmt.Fprintf(tw, "%s\t", tx.Key)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", tx.Timestamp, tx.CreatedBy, tx.TxID)
	}
	return tw.Flush()
}

func statusLine(p *document.Process) string {
	switch {
	case p.ApprovalStatus == "":
		return "pending"
	case p.Observations != "":
		return fmt.Sprintf("%s by %s (%s)", p.ApprovalStatus, p.ApprovedBy, p.Observations)
	case p.ApprovedBy != "":
		return fmt.Sprintf("%s by %s", p.ApprovalStatus, p.ApprovedBy)
	default:
		return p.ApprovalStatus
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

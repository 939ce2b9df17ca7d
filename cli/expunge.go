package cli

import (
	"fmt"
	"ident_index_app_go/services"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ExpungeOptions holds flags for the expunge command.
type ExpungeOptions struct {
	*RootOptions
	File            string
	SystemID        int64
	Operation       string
	DocumentID      int64
	Reason          string
	Comments        string
	RequestingUnit  string
	CogentPCN       string
	CogentPCN2      string
	CourtCaseNumber string
	Charge          string
	UCN             string
	User            string
}

// expungeFile is the YAML form of an expungement request
type expungeFile struct {
	SystemID        int64   `yaml:"system_id"`
	Operation       string  `yaml:"operation"`
	DocumentID      *int64  `yaml:"document_id"`
	Reason          string  `yaml:"reason"`
	Comments        *string `yaml:"comments"`
	RequestingUnit  string  `yaml:"requesting_unit"`
	CogentPCN       string  `yaml:"cogent_pcn"`
	CogentPCN2      string  `yaml:"cogent_pcn2"`
	CourtCaseNumber string  `yaml:"court_case_number"`
	Charge          string  `yaml:"charge"`
	UCN             string  `yaml:"ucn"`
	User            string  `yaml:"user"`
}

// NewExpungeCommand creates the expunge command.
func NewExpungeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExpungeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "expunge",
		Short: "Run one expungement against a subject",
		Long: `Run one expungement against a subject.

Operations: PART_CANCEL, DOWNGRADE, CANCEL_ENTIRE, PARTIAL, CANCEL.

Example:
  iisctl expunge --system-id 1001 --operation PARTIAL --document-id 7 \
    --reason "court order" --user jdoe
  iisctl expunge --file request.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpunge(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "YAML request file (overrides flags)")
	cmd.Flags().Int64Var(&opts.SystemID, "system-id", 0, "subject system id")
	cmd.Flags().StringVar(&opts.Operation, "operation", "", "delete type code")
	cmd.Flags().Int64Var(&opts.DocumentID, "document-id", 0, "reference document id (single-document operations)")
	cmd.Flags().StringVar(&opts.Reason, "reason", "", "reason for deletion")
	cmd.Flags().StringVar(&opts.Comments, "comments", "", "replacement master comments")
	cmd.Flags().StringVar(&opts.RequestingUnit, "unit", "", "requesting unit for DOWNGRADE (DATA_INTEGRITY|EXPUNGEMENT_UNIT)")
	cmd.Flags().StringVar(&opts.CogentPCN, "pcn", "", "Cogent PCN")
	cmd.Flags().StringVar(&opts.CogentPCN2, "pcn2", "", "second Cogent PCN")
	cmd.Flags().StringVar(&opts.CourtCaseNumber, "court-case", "", "court case number")
	cmd.Flags().StringVar(&opts.Charge, "charge", "", "charge")
	cmd.Flags().StringVar(&opts.UCN, "ucn", "", "FBI number when the subject has none")
	cmd.Flags().StringVar(&opts.User, "user", os.Getenv("USER"), "acting user")

	return cmd
}

func runExpunge(cmd *cobra.Command, opts *ExpungeOptions) error {
	req, err := opts.request(cmd)
	if err != nil {
		return err
	}

	conn, err := opts.store()
	if err != nil {
		return err
	}
	svc := services.NewRecordServices(services.ServiceOptions{
		DB:     conn,
		Logger: opts.logger(),
	})

	out := opts.formatter(cmd)
	result, err := svc.Expungement.Process(cmd.Context(), req)
	if err != nil {
		return reportRecordError(out, "expunge", err)
	}

	summary := fmt.Sprintf("%s %s: log %d indicator=%q record_type=%s",
		result.Operation, result.SID, result.ExpungementID, result.LogIndicator, result.RecordType)
	if result.MasterDeleted {
		summary = fmt.Sprintf("%s %s: log %d indicator=%q subject deleted",
			result.Operation, result.SID, result.ExpungementID, result.LogIndicator)
	}
	if result.Warning != "" {
		summary += "\n" + result.Warning
	}
	return out.Success(summary, result)
}

// request builds the service request from the file or the flags
func (o *ExpungeOptions) request(cmd *cobra.Command) (services.ExpungementRequest, error) {
	if o.File != "" {
		data, err := os.ReadFile(o.File)
		if err != nil {
			return services.ExpungementRequest{}, WrapExitError(ExitCommandError, "read request file", err)
		}
		var f expungeFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return services.ExpungementRequest{}, WrapExitError(ExitCommandError, "parse request file", err)
		}
		user := f.User
		if user == "" {
			user = o.User
		}
		return services.ExpungementRequest{
			SystemID:        f.SystemID,
			Operation:       f.Operation,
			DocumentID:      f.DocumentID,
			Reason:          f.Reason,
			Comments:        f.Comments,
			RequestingUnit:  f.RequestingUnit,
			CogentPCN:       f.CogentPCN,
			CogentPCN2:      f.CogentPCN2,
			CourtCaseNumber: f.CourtCaseNumber,
			Charge:          f.Charge,
			UCN:             f.UCN,
			UserName:        user,
			ClientIP:        "cli",
		}, nil
	}

	req := services.ExpungementRequest{
		SystemID:        o.SystemID,
		Operation:       strings.ToUpper(o.Operation),
		Reason:          o.Reason,
		RequestingUnit:  o.RequestingUnit,
		CogentPCN:       o.CogentPCN,
		CogentPCN2:      o.CogentPCN2,
		CourtCaseNumber: o.CourtCaseNumber,
		Charge:          o.Charge,
		UCN:             o.UCN,
		UserName:        o.User,
		ClientIP:        "cli",
	}
	if cmd.Flags().Changed("document-id") {
		id := o.DocumentID
		req.DocumentID = &id
	}
	if cmd.Flags().Changed("comments") {
		comments := o.Comments
		req.Comments = &comments
	}
	return req, nil
}

// reportRecordError prints a rejected request and maps it to an exit code.
// Rejections exit with ExitFailure; anything else is a command error.
func reportRecordError(out *OutputFormatter, action string, err error) error {
	kind := services.KindOf(err)
	if kind == 0 {
		return WrapExitError(ExitCommandError, action, err)
	}
	if perr := out.Error(kind.String(), err.Error()); perr != nil {
		return perr
	}
	return WrapExitError(ExitFailure, action+" rejected", err)
}

package student

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ValentinKolb/dRec/cmd/util"
	"github.com/ValentinKolb/dRec/lib/record"
	"github.com/ValentinKolb/dRec/rpc/client"
	"github.com/ValentinKolb/dRec/rpc/common"
	"github.com/spf13/cobra"
)

var (
	insertCmd = &cobra.Command{
		Use:   "insert",
		Short: "Inserts a new student record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, err := draftFromFlags(cmd)
			if err != nil {
				return err
			}
			if field, absent := draft.FirstAbsent(); absent {
				return fmt.Errorf("flag --%s is required", field)
			}
			rec, err := rpcClient.Insert(cmd.Context(), draft.Record())
			if err != nil {
				return err
			}
			fmt.Println(rec)
			return nil
		},
	}
	findCmd = &cobra.Command{
		Use:   "find [id]",
		Short: "Reads the record with the given id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			rec, err := rpcClient.Find(cmd.Context(), id)
			if client.IsCode(err, common.CodeIDNotExist) {
				fmt.Printf("id=%d, found=false\n", id)
				return nil
			} else if err != nil {
				return err
			}
			fmt.Println(rec)
			return nil
		},
	}
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Lists all records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := rpcClient.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, rec := range recs {
				fmt.Println(rec)
			}
			fmt.Printf("%d student(s)\n", len(recs))
			return nil
		},
	}
	updateCmd = &cobra.Command{
		Use:   "update [id]",
		Short: "Updates the given fields of a record",
		Long:  "Updates the fields given as flags, all other fields keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			draft, err := draftFromFlags(cmd)
			if err != nil {
				return err
			}
			rec, err := rpcClient.Update(cmd.Context(), id, draft)
			if err != nil {
				return err
			}
			fmt.Println(rec)
			return nil
		},
	}
	deleteCmd = &cobra.Command{
		Use:   "delete [id]",
		Short: "Deletes the record with the given id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			if err := rpcClient.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Println("delete successfully")
			return nil
		},
	}
	rawCmd = &cobra.Command{
		Use:   "raw [request]",
		Short: "Sends a raw JSON request and prints the response",
		Long:  `Sends a raw JSON request (e.g. '{"action":"FIND","payload":{"id":1}}') and prints the response line as returned by the server`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req common.Request
			if err := json.Unmarshal([]byte(args[0]), &req); err != nil {
				return fmt.Errorf("request must be a JSON object: %w", err)
			}
			resp, err := rpcClient.Do(cmd.Context(), &req)
			if resp == nil {
				return err
			}
			if common.ParseAction(req.Action) == common.ActionQuit {
				// the server has closed the session already
				_ = rpcClient.Close()
				rpcClient = nil
			}
			out, err := json.Marshal(resp)
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
)

func init() {
	for _, cmd := range []*cobra.Command{insertCmd, updateCmd} {
		cmd.Flags().String("name", "", util.WrapString("Name of the student"))
		cmd.Flags().String("dob", "", util.WrapString("Date of birth (YYYY-MM-DD)"))
		cmd.Flags().Float64("gpa", 0, util.WrapString("GPA between 0 and 4"))
		cmd.Flags().String("sex", "", util.WrapString("Sex of the student (MALE, FEMALE, OTHER)"))
		cmd.Flags().String("major", "", util.WrapString("Major of the student"))
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func parseIDArg(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("id must be a non-negative number: %q", arg)
	}
	return id, nil
}

// draftFromFlags returns a draft holding every record flag that was set explicitly
func draftFromFlags(cmd *cobra.Command) (record.Draft, error) {
	var d record.Draft
	flags := cmd.Flags()

	if flags.Changed("name") {
		name, _ := flags.GetString("name")
		d.Name = record.Some(strings.TrimSpace(name))
	}
	if flags.Changed("dob") {
		raw, _ := flags.GetString("dob")
		dob, err := record.ParseDate(raw)
		if err != nil {
			return d, fmt.Errorf("dob must have the format YYYY-MM-DD: %w", err)
		}
		d.Dob = record.Some(dob)
	}
	if flags.Changed("gpa") {
		gpa, _ := flags.GetFloat64("gpa")
		d.Gpa = record.Some(gpa)
	}
	if flags.Changed("sex") {
		raw, _ := flags.GetString("sex")
		sex, ok := record.ParseSex(raw)
		if !ok {
			return d, fmt.Errorf("sex must be one of %v", record.Sexes)
		}
		d.Sex = record.Some(sex)
	}
	if flags.Changed("major") {
		major, _ := flags.GetString("major")
		d.Major = record.Some(strings.TrimSpace(major))
	}
	return d, nil
}

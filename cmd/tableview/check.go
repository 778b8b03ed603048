package main

import (
	"fmt"

	"github.com/bingLAN/table_view/db_driver"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the database connection and list the exposed resources",
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	driver, datasourceId, err := openDriver(cfg)
	if err != nil {
		return err
	}
	defer driver.Close()

	source, err := driver.GetDatasource(datasourceId)
	if err != nil {
		return err
	}
	status, err := driver.CheckDatasource(source.Info())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "datasource %s (%s): %s\n", datasourceId, source.Type(), db_driver.DBConnStatus2String(status))
	for _, rt := range driver.ScanResources() {
		columns, err := driver.GetColumns(cmd.Context(), datasourceId, rt.Info)
		if err != nil {
			fmt.Fprintf(out, "  %-20s %s  error: %v\n", rt.ResourceName, visibility(rt.Public), err)
			continue
		}
		fmt.Fprintf(out, "  %-20s %s  %v\n", rt.ResourceName, visibility(rt.Public), columns)
	}
	if status != db_driver.ConnSuccess {
		return fmt.Errorf("datasource %s unavailable", datasourceId)
	}
	return nil
}

func visibility(public bool) string {
	if public {
		return "public "
	}
	return "manager"
}

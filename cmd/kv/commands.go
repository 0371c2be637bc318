package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/rmemstore/rpc/common"
	"github.com/spf13/cobra"
	"os"
)

var (
	putCmd = &cobra.Command{
		Use:   "put [key] [value]",
		Short: "Sets the value for a key",
		Long: `Sets the value for a key. The value is either a plain string or a JSON
object in one of the forms {"string": "..."}, {"blob": "<base64>"} or
{"map": {"key": <value>, ...}}.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := common.ParseValue(args[1])
			if err != nil {
				return err
			}

			c, _, err := connect()
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.Put(context.Background(), []byte(args[0]), value); err != nil {
				return err
			}
			fmt.Println("put successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Gets the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := connect()
			if err != nil {
				return err
			}
			defer c.Close()

			value, found, err := c.Get(context.Background(), []byte(args[0]))
			if err != nil {
				return err
			}
			if !found {
				fmt.Println("key not found")
				return nil
			}
			return printValue(value)
		},
	}
)

// printValue prints strings and blobs as text and maps as indented JSON
func printValue(value *common.Value) error {
	if value.Kind != common.KindMap {
		fmt.Println(value.Text())
		return nil
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value.Map)
}

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"activitylog/internal/match"
	"activitylog/internal/storage"
	"activitylog/pkg/api"
	"activitylog/pkg/domain"
)

// openArchive 打开活动历史并创建服务
func openArchive(gs *globalState) (api.Service, error) {
	store, err := storage.Open(gs.cfg, gs.log.With("component", "storage"))
	if err != nil {
		return nil, err
	}
	return api.NewService(1, store, gs.log), nil
}

// parseSpec 解析 --match（全部满足）、--any（任一满足）与 --exclude（均不满足）条件
func parseSpec(all, anyOf, none []string) (match.Spec, error) {
	var spec match.Spec
	for _, set := range []struct {
		raw []string
		dst *[]match.Condition
	}{{all, &spec.AllOf}, {anyOf, &spec.AnyOf}, {none, &spec.NoneOf}} {
		for _, s := range set.raw {
			c, err := match.ParseCondition(s)
			if err != nil {
				return match.Spec{}, err
			}
			*set.dst = append(*set.dst, c)
		}
	}
	return spec, nil
}

func getCmdHistory(gs *globalState) *cobra.Command {
	var (
		ext             string
		all, anyOf, none []string
		asJSON, details  bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "按 API 调用聚合查看扩展的活动历史",
		Long: `按 API 调用聚合查看扩展的活动历史，按调用次数降序排列。

条件格式为 field:mode:pattern 或 field=pattern，例如:
  --match apiCall:prefix:tabs.
  --exclude pageUrl:glob:chrome://*`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			spec, err := parseSpec(all, anyOf, none)
			if err != nil {
				return err
			}
			svc, err := openArchive(gs)
			if err != nil {
				return err
			}
			defer svc.Close()

			groups, err := svc.History(cmd.Context(), domain.ExtensionID(ext), spec)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(gs.stdOut)
				enc.SetIndent("", "  ")
				return enc.Encode(groups)
			}
			printGroups(gs, groups, details)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&ext, "extension", "e", "", "扩展 ID")
	flags.StringArrayVar(&all, "match", nil, "必须全部满足的条件，可重复")
	flags.StringArrayVar(&anyOf, "any", nil, "满足任一即可的条件，可重复")
	flags.StringArrayVar(&none, "exclude", nil, "必须均不满足的条件，可重复")
	flags.BoolVar(&asJSON, "json", false, "以 JSON 输出")
	flags.BoolVar(&details, "details", false, "显示每个页面 URL 的调用次数和活动 ID")
	_ = cmd.MarkFlagRequired("extension")
	return cmd
}

func printGroups(gs *globalState, groups []domain.ActivityGroup, details bool) {
	if len(groups) == 0 {
		fmt.Fprintln(gs.stdOut, faint.Sprint("没有活动历史"))
		return
	}
	for _, g := range groups {
		fmt.Fprintf(gs.stdOut, "%6d %s %s\n", g.Count, typeLabel(g.ActivityType), g.Key)
		if !details {
			continue
		}
		for _, u := range g.CountsByURL {
			url := u.URL
			if url == "" {
				url = "(无页面)"
			}
			fmt.Fprintf(gs.stdOut, "       %6d %s\n", u.Count, faint.Sprint(url))
		}
		ids := make([]string, len(g.ActivityIDs))
		for i, id := range g.ActivityIDs {
			ids[i] = string(id)
		}
		fmt.Fprintf(gs.stdOut, "       ids: %s\n", strings.Join(ids, ","))
	}
}

func getCmdClearHistory(gs *globalState) *cobra.Command {
	var (
		ext string
		ids []string
	)
	cmd := &cobra.Command{
		Use:   "clear-history",
		Short: "删除扩展的活动历史",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ext == "" && len(ids) == 0 {
				return fmt.Errorf("需要指定 --extension 或 --ids")
			}
			svc, err := openArchive(gs)
			if err != nil {
				return err
			}
			defer svc.Close()

			var n int64
			if len(ids) > 0 {
				list := make([]domain.ActivityID, len(ids))
				for i, id := range ids {
					list[i] = domain.ActivityID(strings.TrimSpace(id))
				}
				n, err = svc.DeleteActivities(cmd.Context(), list)
			} else {
				n, err = svc.DeleteHistory(cmd.Context(), domain.ExtensionID(ext))
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(gs.stdOut, "已删除 %d 条活动\n", n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&ext, "extension", "e", "", "扩展 ID")
	cmd.Flags().StringSliceVar(&ids, "ids", nil, "要删除的活动 ID，逗号分隔")
	return cmd
}

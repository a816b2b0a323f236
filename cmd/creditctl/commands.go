package main

import (
	"fmt"
	"strconv"

	"github.com/Behyna/sms-services/creditgateway/internal/model"
	"github.com/Behyna/sms-services/creditgateway/internal/service"
	"github.com/Behyna/sms-services/creditgateway/pkg/mysql"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func capacityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capacity",
		Short: "Show how many messages a tenant can send on a channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, _ := cmd.Flags().GetString("tenant")
			rawChannel, _ := cmd.Flags().GetString("channel")

			channel, err := model.ParseChannel(rawChannel)
			if err != nil {
				return err
			}

			d, err := loadDeps(cmd.Context())
			if err != nil {
				return err
			}
			defer d.close()

			capacity, err := d.allocator.Capacity(cmd.Context(), tenant, channel)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), map[string]any{
				"tenant_id": tenant,
				"channel":   channel,
				"capacity":  capacity,
			})
		},
	}

	cmd.Flags().StringP("tenant", "t", "", "Tenant id")
	cmd.Flags().StringP("channel", "c", string(model.ChannelSMS), "Channel (alimtalk, sms, lms, mms)")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

func settleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "settle [campaign-id]",
		Short: "Settle a terminal campaign from its stored delivery counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			campaignID, err := parseID(args[0])
			if err != nil {
				return err
			}

			d, err := loadDeps(cmd.Context())
			if err != nil {
				return err
			}
			defer d.close()

			result, err := d.settlement.Settle(cmd.Context(), campaignID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}

func refundCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refund [campaign-id]",
		Short: "Refund every unit of a cancelled or failed campaign the gateway never accepted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			campaignID, err := parseID(args[0])
			if err != nil {
				return err
			}
			reason, _ := cmd.Flags().GetString("reason")

			d, err := loadDeps(cmd.Context())
			if err != nil {
				return err
			}
			defer d.close()

			result, err := d.settlement.RefundAll(cmd.Context(), campaignID, reason)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringP("reason", "r", "operator", "Refund reason recorded in metrics and logs")

	return cmd
}

func chargeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "charge",
		Short: "Create a CHARGE pool for a collected payment",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, _ := cmd.Flags().GetString("tenant")
			key, _ := cmd.Flags().GetString("key")
			pending, _ := cmd.Flags().GetBool("pending")

			purchase, err := decimalFlag(cmd, "purchase")
			if err != nil {
				return err
			}
			credits, err := decimalFlag(cmd, "credits")
			if err != nil {
				return err
			}

			d, err := loadDeps(cmd.Context())
			if err != nil {
				return err
			}
			defer d.close()

			pool, err := d.funding.CreateCharge(cmd.Context(), service.CreateChargeCommand{
				TenantID:       tenant,
				PurchaseAmount: purchase,
				CreditsAmount:  credits,
				IdempotencyKey: key,
				Confirmed:      !pending,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), pool)
		},
	}

	cmd.Flags().StringP("tenant", "t", "", "Tenant id")
	cmd.Flags().String("purchase", "", "Amount of money collected")
	cmd.Flags().String("credits", "", "Credits granted for the payment")
	cmd.Flags().StringP("key", "k", "", "Idempotency key, usually the payment id")
	cmd.Flags().Bool("pending", false, "Create the pool unconfirmed")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("purchase")
	_ = cmd.MarkFlagRequired("credits")

	return cmd
}

func confirmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "confirm [pool-id]",
		Short: "Confirm a pending CHARGE pool so it can be spent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			poolID, err := parseID(args[0])
			if err != nil {
				return err
			}
			tenant, _ := cmd.Flags().GetString("tenant")

			d, err := loadDeps(cmd.Context())
			if err != nil {
				return err
			}
			defer d.close()

			pool, err := d.funding.ConfirmCharge(cmd.Context(), tenant, poolID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), pool)
		},
	}

	cmd.Flags().StringP("tenant", "t", "", "Tenant id")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the ledger tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDeps(cmd.Context())
			if err != nil {
				return err
			}
			defer d.close()

			if err := mysql.Migrate(d.db, d.logger, model.All()...); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrated")
			return nil
		},
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func decimalFlag(cmd *cobra.Command, name string) (decimal.Decimal, error) {
	raw, _ := cmd.Flags().GetString(name)
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return value, nil
}

/*
Market simulates a virtual stock market.

# Module
  - instrument: price, volatility, bias and forecast state of a tradable entity
  - ledger: resting limit/stop orders per symbol in queue order
  - matching: executes eligible resting orders against the synthetic counterparty
  - clock: converts elapsed cycles into ticks and drives the price model
  - registry: owns instruments, ledger and tick bookkeeping

# Source
 1. order placement and cancellation from callers
 2. elapsed cycles from the driver loop (real time or offline catch-up)

# Produce
  - trades to the Holder
  - fills to observers

# Sharded
  - none, a Market is single-threaded
*/
package market

// Package harness runs scripted ledger sessions as conformance tests.
//
// A scenario names a few players, drives them through submissions,
// replays, clock jumps and skin grants, and then asserts on the final
// ranking state.
//
// # Scenario Format
//
//	name: leaderboard_basics
//	description: "Best scores only rise"
//	players: [player1, player2]
//	flow:
//	  - action: submit
//	    player: player1
//	    score: 100
//	    as: first
//	    expect:
//	      case: Committed
//	      result: { first_appearance: true }
//	  - action: redeem
//	    token: first
//	    expect: { case: NonceAlreadyUsed }
//	assertions:
//	  - type: top_scores
//	    limit: 10
//	    entries:
//	      - { player: player1, score: 100 }
//
// # Determinism
//
// Every run uses a fresh in-memory store, a manual wall clock starting at
// start_time, sequential transaction ids and counter-derived nonces.
// The same scenario always yields the same trace, which RenderTrace turns
// into the golden text stored under testdata/golden.
package harness

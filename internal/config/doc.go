// Package config loads hiscore.yaml.
//
// A file is decoded strictly over Default, the SIGNER_PRIVATE_KEY
// environment variable replaces signer.private_key, and the merged result
// is unified with the embedded CUE schema before any component sees it.
// signer.expiry and ledger.signature_window must be equal.
//
//	signer:
//	  max_score: 9999
//	  expiry: 5m
//	  listen: ":8081"
//	  allowed_origins: ["https://game.example"]
//	ledger:
//	  db_path: hiscore.db
//	  listen: ":8080"
//	  signature_window: 5m
//	skins:
//	  mode: claim
//	  catalog:
//	    - { id: 1, name: jesse, price: 0 }
package config

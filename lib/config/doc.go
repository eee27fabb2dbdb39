// Package config provides configuration management for the go-rns node.
//
// # Configuration Directories
//
// BaseDir holds read-only defaults that ship with the system. WorkingDir
// holds everything the node changes at runtime: the transport identity key
// and the known destinations table. Relative identity and storage paths are
// resolved against WorkingDir.
//   - BaseDir default: $HOME/.go-rns/base
//   - WorkingDir default: $HOME/.go-rns/config
//
// # Configuration File
//
// The configuration is read with viper from $HOME/.go-rns/config.yaml, or
// from the file named by the --config flag. A missing default file is
// created from the defaults on first start.
//
//	announce:
//	  handlers: [nomadnetwork.node, lxmf.delivery]
//	  path_responses: false
//	interfaces:
//	  reconnect_interval: 5s
//	  tcp_client:
//	    - name: amsterdam
//	      target: amsterdam.connect.reticulum.network:4965
//	  tcp_server:
//	    - name: local
//	      listen: 127.0.0.1:4242
//	  tcp_tap:
//	    - name: tap
//	      listen: 127.0.0.1:4966
//	      target: dublin.connect.reticulum.network:4965
//	control:
//	  enabled: true
//	  address: 127.0.0.1:7651
package config

// Package config carrega a configuração do servidor do solver.
//
// Ordem: arquivo YAML (ausente = só defaults), variáveis de ambiente,
// defaults para o que ficou vazio e por fim Validate.
package config
